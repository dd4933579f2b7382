package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hotstocks/internal/common"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestClient(serverURL string) *Client {
	return NewClient(
		WithBaseURL(serverURL),
		WithLogger(arbor.NewLogger()),
		WithRateLimit(1000),
		WithRetry(3, time.Millisecond),
		WithPageDelay(0),
		WithClock(func() time.Time { return testNow }),
	)
}

func postNode(id string, created time.Time, score, comments int) map[string]interface{} {
	return map[string]interface{}{
		"kind": "t3",
		"data": map[string]interface{}{
			"id":           id,
			"title":        "Title " + id,
			"selftext":     "body of " + id,
			"score":        score,
			"num_comments": comments,
			"permalink":    "/r/stocks/comments/" + id + "/title/",
			"subreddit":    "stocks",
			"created_utc":  float64(created.Unix()),
		},
	}
}

func listingBody(after string, children ...map[string]interface{}) map[string]interface{} {
	if children == nil {
		children = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"kind": "Listing",
		"data": map[string]interface{}{
			"after":    after,
			"children": children,
		},
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestFetchRecentItems_StopsAtLookbackCutoff(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "/r/stocks/new.json", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		writeJSON(t, w, listingBody("t3_next",
			postNode("a", testNow.Add(-1*time.Hour), 10, 1),
			postNode("b", testNow.Add(-2*time.Hour), 20, 2),
			postNode("c", testNow.Add(-48*time.Hour), 30, 3),
			postNode("d", testNow.Add(-3*time.Hour), 40, 4),
		))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	items, err := client.FetchRecentItems(context.Background(), "stocks", 24*time.Hour, 100)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "must not page past the cutoff")

	assert.Equal(t, "Title a\nbody of a", items[0].Text)
	assert.Equal(t, 10, items[0].EngagementScore)
	assert.Equal(t, 1, items[0].ReplyCount)
	assert.Equal(t, "/r/stocks/comments/a/title/", items[0].Permalink)
	assert.True(t, testNow.Add(-1*time.Hour).Equal(items[0].CreatedAt))
}

func TestFetchRecentItems_PaginatesUntilLimit(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		switch n {
		case 1:
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			assert.Empty(t, r.URL.Query().Get("after"))
			writeJSON(t, w, listingBody("t3_b",
				postNode("a", testNow.Add(-1*time.Hour), 1, 0),
				postNode("b", testNow.Add(-2*time.Hour), 1, 0),
			))
		default:
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "t3_b", r.URL.Query().Get("after"))
			writeJSON(t, w, listingBody("t3_d",
				postNode("c", testNow.Add(-3*time.Hour), 1, 0),
				postNode("d", testNow.Add(-4*time.Hour), 1, 0),
			))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	items, err := client.FetchRecentItems(context.Background(), "stocks", 24*time.Hour, 3)
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestFetchRecentItems_EndOfFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, listingBody("", postNode("a", testNow, 1, 0)))
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).FetchRecentItems(context.Background(), "stocks", time.Hour, 50)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFetchRecentItems_SkipsPostsWithoutCreatedTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		noTime := map[string]interface{}{
			"kind": "t3",
			"data": map[string]interface{}{"id": "x", "title": "no time"},
		}
		writeJSON(t, w, listingBody("", noTime, postNode("a", testNow, 1, 0)))
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).FetchRecentItems(context.Background(), "stocks", time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
}

func TestFetchRecentItems_RetriesTransientFailures(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, listingBody("", postNode("a", testNow, 1, 0)))
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).FetchRecentItems(context.Background(), "stocks", time.Hour, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetchRecentItems_ExhaustedRetriesIsSourceUnavailable(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRecentItems(context.Background(), "stocks", time.Hour, 10)
	require.Error(t, err)

	var srcErr *common.SourceUnavailableError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "stocks", srcErr.Channel)
	assert.Equal(t, 3, srcErr.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestFetchRecentItems_ClientErrorFailsFast(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchRecentItems(context.Background(), "doesnotexist", time.Hour, 10)
	require.Error(t, err)
	assert.True(t, common.IsSourceUnavailable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestFetchRecentItems_RateLimitedIsRetried(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, listingBody("", postNode("a", testNow, 1, 0)))
	}))
	defer server.Close()

	items, err := newTestClient(server.URL).FetchRecentItems(context.Background(), "stocks", time.Hour, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFetchRecentItems_ZeroLimit(t *testing.T) {
	items, err := newTestClient("http://127.0.0.1:0").FetchRecentItems(context.Background(), "stocks", time.Hour, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func commentNode(body string, replies ...map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{"body": body, "replies": ""}
	if len(replies) > 0 {
		data["replies"] = listingBody("", replies...)
	}
	return map[string]interface{}{"kind": "t1", "data": data}
}

func TestFetchReplies_WalksNestedTree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/stocks/comments/a/title.json", r.URL.Path)
		assert.Equal(t, "top", r.URL.Query().Get("sort"))
		more := map[string]interface{}{
			"kind": "more",
			"data": map[string]interface{}{"children": []string{"x1", "x2"}},
		}
		writeJSON(t, w, []interface{}{
			listingBody("", postNode("a", testNow, 1, 3)),
			listingBody("",
				commentNode("first $GME", commentNode("nested AMC")),
				more,
				commentNode("second TSLA"),
			),
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	bodies := client.FetchReplies(context.Background(), "/r/stocks/comments/a/title/", 10)
	assert.Equal(t, []string{"first $GME", "nested AMC", "second TSLA"}, bodies)

	limited := client.FetchReplies(context.Background(), "/r/stocks/comments/a/title/", 2)
	assert.Equal(t, []string{"first $GME", "nested AMC"}, limited)
}

func TestFetchReplies_FailureIsAbsorbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	bodies := newTestClient(server.URL).FetchReplies(context.Background(), "/r/stocks/comments/a/title/", 10)
	assert.NotNil(t, bodies)
	assert.Empty(t, bodies)
}

func TestFetchReplies_MalformedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []interface{}{listingBody("")})
	}))
	defer server.Close()

	bodies := newTestClient(server.URL).FetchReplies(context.Background(), "/r/stocks/comments/a/title/", 10)
	assert.Empty(t, bodies)
}

func TestFetchReplies_NoPermalink(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	assert.Empty(t, client.FetchReplies(context.Background(), "", 10))
	assert.Empty(t, client.FetchReplies(context.Background(), "/r/x/comments/a/", 0))
}

func TestIsRetryable(t *testing.T) {
	ctx := context.Background()
	assert.True(t, isRetryable(ctx, &APIError{StatusCode: 503}))
	assert.True(t, isRetryable(ctx, &RateLimitError{RetryAfter: time.Second}))
	assert.False(t, isRetryable(ctx, &APIError{StatusCode: 403}))
	assert.False(t, isRetryable(ctx, context.Canceled))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, isRetryable(cancelled, &APIError{StatusCode: 503}))
}

func TestWithClientCredentials_AuthorizesRequests(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "app-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		writeJSON(t, w, map[string]interface{}{
			"access_token": "tok-123",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		writeJSON(t, w, listingBody("", postNode("a", testNow, 1, 0)))
	}))
	defer apiServer.Close()

	client := NewClient(
		WithRateLimit(1000),
		WithRetry(1, time.Millisecond),
		WithPageDelay(0),
		WithClock(func() time.Time { return testNow }),
		WithClientCredentials("app-id", "app-secret", tokenServer.URL, apiServer.URL),
	)

	items, err := client.FetchRecentItems(context.Background(), "stocks", time.Hour, 5)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWithClientCredentials_NoCredentialsKeepsAnonymous(t *testing.T) {
	client := NewClient(WithClientCredentials("", "", "", ""))
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}
