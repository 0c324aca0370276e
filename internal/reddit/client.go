// Package reddit is the content-source adapter: an OAuth'd Reddit API client
// exposing a skip-existing comment stream and server-filtered search.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"subwatch/pkg/logx"
)

const (
	authURL = "https://www.reddit.com/api/v1/access_token"
	apiBase = "https://oauth.reddit.com"
)

type Config struct {
	ClientID     string
	ClientSecret string
	// Username/Password are optional; when set the password grant is used,
	// which gets higher rate limits than client credentials.
	Username  string
	Password  string
	UserAgent string
	// RequestsPerMin caps API calls (Reddit allows 60/min for OAuth clients).
	RequestsPerMin int
}

type Client struct {
	cfg     Config
	log     logx.Logger
	http    *http.Client
	limiter *rate.Limiter

	authURL string
	apiBase string

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("reddit client_id and client_secret are required")
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "subwatch:v1.0"
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		cfg:     cfg,
		log:     log,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 2),
		authURL: authURL,
		apiBase: apiBase,
	}, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		form.Set("grant_type", "password")
		form.Set("username", c.cfg.Username)
		form.Set("password", c.cfg.Password)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: %s", resp.Status)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.log.Debug("reddit token refreshed", logx.Time("expires", c.tokenExpiry))
	return c.token, nil
}

// getListing performs one rate-limited authorized GET and decodes a listing.
func (c *Client) getListing(ctx context.Context, path string, q url.Values) (*listing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := c.apiBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked; force a refresh on the next call.
		c.tokenMu.Lock()
		c.token = ""
		c.tokenMu.Unlock()
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return &l, nil
}

// SearchOptions bound one sweep request.
type SearchOptions struct {
	Sort       string // "new", "relevance", ...
	TimeWindow string // "hour", "day", "week", ...
	Limit      int
}

// Search returns a bounded page of server-filtered posts for an exact phrase
// in one subreddit.
func (c *Client) Search(ctx context.Context, subreddit, phrase string, opt SearchOptions) ([]Item, error) {
	if subreddit == "" {
		subreddit = "all"
	}
	sort := opt.Sort
	if sort == "" {
		sort = "new"
	}
	window := opt.TimeWindow
	if window == "" {
		window = "hour"
	}
	limit := opt.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	q := url.Values{}
	q.Set("q", `"`+phrase+`"`)
	q.Set("sort", sort)
	q.Set("t", window)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("restrict_sr", "1")
	q.Set("raw_json", "1")

	l, err := c.getListing(ctx, "/r/"+url.PathEscape(subreddit)+"/search", q)
	if err != nil {
		return nil, err
	}
	return l.items(), nil
}
