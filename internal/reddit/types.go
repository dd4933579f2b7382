package reddit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/hotstocks/internal/models"
)

// listing is the envelope Reddit wraps every paginated response in
type listing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

// thing is a typed node: t3 for posts, t1 for comments, "more" for collapsed stubs
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// post is the subset of a t3 payload the pipeline uses
type post struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Selftext    string   `json:"selftext"`
	Score       int      `json:"score"`
	NumComments int      `json:"num_comments"`
	Permalink   string   `json:"permalink"`
	Subreddit   string   `json:"subreddit"`
	CreatedUTC  *float64 `json:"created_utc"`
}

func (p post) createdAt() time.Time {
	sec := int64(*p.CreatedUTC)
	nsec := int64((*p.CreatedUTC - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

func (p post) toItem(channel string) models.Item {
	if p.Subreddit != "" {
		channel = p.Subreddit
	}
	return models.Item{
		ID:              p.ID,
		Channel:         channel,
		Title:           strings.TrimSpace(p.Title),
		Text:            p.Title + "\n" + p.Selftext,
		EngagementScore: p.Score,
		ReplyCount:      p.NumComments,
		Permalink:       p.Permalink,
		CreatedAt:       p.createdAt(),
	}
}

// comment is the subset of a t1 payload the pipeline uses.
// Replies is either an empty string or a nested listing.
type comment struct {
	Body    string          `json:"body"`
	Replies json.RawMessage `json:"replies"`
}

// APIError represents a non-200 response from the Reddit API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Reddit API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Retryable reports whether the status code indicates a transient failure
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}

// RateLimitError represents a 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
	Endpoint   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Reddit rate limit exceeded on %s, retry after %v", e.Endpoint, e.RetryAfter)
}
