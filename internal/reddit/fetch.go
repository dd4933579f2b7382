package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/models"
)

// FetchRecentItems pages through /r/{channel}/new newest first. Paging stops at the first
// post older than now-lookback, once limit items are collected, or when the feed ends.
// Posts without a creation time are skipped.
func (c *Client) FetchRecentItems(ctx context.Context, channel string, lookback time.Duration, limit int) ([]models.Item, error) {
	items := []models.Item{}
	if limit <= 0 {
		return items, nil
	}

	cutoff := c.now().Add(-lookback)
	path := "/r/" + url.PathEscape(channel) + "/new.json"
	after := ""
	pages := 0

	for len(items) < limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(maxPageSize, limit-len(items))))
		params.Set("raw_json", "1")
		if after != "" {
			params.Set("after", after)
		}

		var page listing
		attempts, err := c.getWithRetry(ctx, path, params, &page)
		if err != nil {
			return nil, &common.SourceUnavailableError{Channel: channel, Attempts: attempts, Err: err}
		}
		pages++

		if len(page.Data.Children) == 0 {
			break
		}

		for _, child := range page.Data.Children {
			var p post
			if err := json.Unmarshal(child.Data, &p); err != nil {
				c.logger.Debug().Err(err).Str("channel", channel).Msg("Skipping undecodable post")
				continue
			}
			if p.CreatedUTC == nil {
				continue
			}
			if p.createdAt().Before(cutoff) {
				c.logger.Debug().
					Str("channel", channel).
					Int("items", len(items)).
					Int("pages", pages).
					Msg("Reached lookback cutoff")
				return items, nil
			}
			items = append(items, p.toItem(channel))
			if len(items) >= limit {
				return items, nil
			}
		}

		after = page.Data.After
		if after == "" {
			break
		}
		if err := sleepContext(ctx, c.pageDelay); err != nil {
			return nil, &common.SourceUnavailableError{Channel: channel, Attempts: 1, Err: err}
		}
	}

	return items, nil
}

// FetchReplies walks the comment tree of one post, returning up to limit bodies
// in the order Reddit ranks them (sort=top). Failures are logged and yield an empty slice.
func (c *Client) FetchReplies(ctx context.Context, permalink string, limit int) []string {
	bodies := []string{}
	if permalink == "" || limit <= 0 {
		return bodies
	}

	path := strings.TrimSuffix(permalink, "/") + ".json"
	params := url.Values{}
	params.Set("sort", "top")
	params.Set("limit", strconv.Itoa(min(maxCommentLimit, limit)))
	params.Set("raw_json", "1")

	var listings []listing
	if _, err := c.getWithRetry(ctx, path, params, &listings); err != nil {
		c.logger.Warn().
			Err(fmt.Errorf("%w: %v", common.ErrReplyFetchFailed, err)).
			Str("permalink", permalink).
			Msg("Reply fetch failed, continuing without replies")
		return bodies
	}
	if len(listings) < 2 {
		return bodies
	}

	walkComments(listings[1].Data.Children, &bodies, limit)
	return bodies
}

// walkComments collects t1 bodies depth-first, descending into nested reply listings.
// "more" stubs only carry ids and are not expanded.
func walkComments(nodes []thing, out *[]string, limit int) {
	for _, n := range nodes {
		if len(*out) >= limit {
			return
		}

		switch n.Kind {
		case "t1":
			var cm comment
			if err := json.Unmarshal(n.Data, &cm); err != nil {
				continue
			}
			if cm.Body != "" {
				*out = append(*out, cm.Body)
			}
			// replies is "" when empty, otherwise a Listing object
			if len(cm.Replies) > 0 && cm.Replies[0] == '{' {
				var nested listing
				if err := json.Unmarshal(cm.Replies, &nested); err == nil {
					walkComments(nested.Data.Children, out, limit)
				}
			}
		case "more":
			continue
		default:
			var nested listingData
			if err := json.Unmarshal(n.Data, &nested); err == nil && len(nested.Children) > 0 {
				walkComments(nested.Children, out, limit)
			}
		}
	}
}
