package reddit

import (
	"context"
	"net/url"
	"strconv"
)

// streamWindow bounds how many recently seen ids a stream remembers. Reddit
// returns at most 100 items per poll, so a few pages of slack is enough to
// never re-emit across overlapping polls.
const streamWindow = 500

// CommentStream is a lazy, skip-existing sequence of newly created comments.
//
// A stream is not restartable: on any error the caller must discard it and
// open a fresh one with NewCommentStream, forfeiting whatever was created in
// between (the sweep backstops that gap).
type CommentStream struct {
	c         *Client
	subreddit string

	primed bool
	seen   map[string]struct{}
	order  []string
}

// NewCommentStream opens a fresh subscription on /r/<subreddit>/comments.
// The first poll only primes the watermark so existing comments are skipped.
func (c *Client) NewCommentStream(subreddit string) *CommentStream {
	if subreddit == "" {
		subreddit = "all"
	}
	return &CommentStream{
		c:         c,
		subreddit: subreddit,
		seen:      map[string]struct{}{},
	}
}

// Next performs one rate-limited poll and returns the comments created since
// the previous call, oldest first. The first call returns no items.
func (s *CommentStream) Next(ctx context.Context) ([]Item, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(100))
	q.Set("raw_json", "1")

	l, err := s.c.getListing(ctx, "/r/"+url.PathEscape(s.subreddit)+"/comments", q)
	if err != nil {
		return nil, err
	}

	page := l.items() // newest first
	fresh := make([]Item, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		it := page[i]
		if _, ok := s.seen[it.ID]; ok {
			continue
		}
		s.remember(it.ID)
		fresh = append(fresh, it)
	}

	if !s.primed {
		s.primed = true
		return nil, nil
	}
	return fresh, nil
}

func (s *CommentStream) remember(id string) {
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > streamWindow {
		drop := len(s.order) - streamWindow
		for _, old := range s.order[:drop] {
			delete(s.seen, old)
		}
		s.order = append([]string(nil), s.order[drop:]...)
	}
}
