package models

import "time"

// Item is one discrete piece of channel content (a post) with its own engagement metrics.
// Items are created by a source fetcher and discarded after aggregation.
type Item struct {
	ID              string    `json:"id"`
	Channel         string    `json:"channel"`
	Title           string    `json:"title"`
	Text            string    `json:"text"`             // Title and body joined, used for extraction
	EngagementScore int       `json:"engagement_score"` // May be negative
	ReplyCount      int       `json:"reply_count"`
	Permalink       string    `json:"permalink,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasPermalink reports whether the item carries a usable source link
func (i Item) HasPermalink() bool {
	return i.Permalink != ""
}
