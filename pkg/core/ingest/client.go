// Package ingest fetches company statement pages from the screener website
// and turns their HTML tables into raw grids.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"ratio_screener/pkg/core/cache"
	"ratio_screener/pkg/core/statement"
	"ratio_screener/pkg/core/utils"
)

const (
	DefaultBaseURL   = "https://www.screener.in"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	searchPath = "/api/company/search/"
)

var (
	// ErrCompanyNotFound is returned when the search endpoint has no match.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrMissingCredentials is returned when the session cookies are unset.
	ErrMissingCredentials = errors.New("missing session credentials")
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// =============================================================================
// TYPES
// =============================================================================

// Credentials are the session cookies of a logged-in account.
type Credentials struct {
	SessionID string
	CSRFToken string
}

// Validate fails when either cookie is empty.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.SessionID) == "" || strings.TrimSpace(c.CSRFToken) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ClientConfig tunes the HTTP client.
type ClientConfig struct {
	BaseURL     string
	UserAgent   string
	Timeout     time.Duration
	MinInterval time.Duration // spacing between requests, zero disables
	CacheTTL    time.Duration
}

// DefaultClientConfig returns production settings.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:     DefaultBaseURL,
		UserAgent:   DefaultUserAgent,
		Timeout:     30 * time.Second,
		MinInterval: 250 * time.Millisecond,
		CacheTTL:    24 * time.Hour,
	}
}

// Company is one hit of the search endpoint.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the screener website.
type Client struct {
	cfg        ClientConfig
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.Store
	logger     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache memoises search results in store.
func WithCache(store cache.Store) Option {
	return func(c *Client) { c.cache = store }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient validates creds and builds a client.
func NewClient(cfg ClientConfig, creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	def := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		creds:      creds,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zerolog.Nop(),
	}
	if cfg.MinInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SearchCompany resolves a free-text name to the best matching company.
func (c *Client) SearchCompany(ctx context.Context, name string) (Company, error) {
	key := "search:" + strings.ToLower(strings.TrimSpace(name))
	return cache.Memoize(ctx, c.cache, key, c.cfg.CacheTTL, func() (Company, error) {
		q := url.Values{}
		q.Set("q", name)
		q.Set("v", "3")
		q.Set("fts", "1")

		body, err := c.get(ctx, c.cfg.BaseURL+searchPath+"?"+q.Encode())
		if err != nil {
			return Company{}, err
		}

		var hits []Company
		if err := utils.DecodeLenient(body, &hits); err != nil {
			return Company{}, fmt.Errorf("failed to parse search response: %w", err)
		}
		if len(hits) == 0 {
			return Company{}, ErrCompanyNotFound
		}
		return hits[0], nil
	})
}

// FetchTables downloads the company page and extracts all its tables.
func (c *Client) FetchTables(ctx context.Context, company Company) ([]statement.RawTable, error) {
	target := company.URL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.cfg.BaseURL + "/" + strings.TrimLeft(target, "/")
	}
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	return ExtractTables(strings.NewReader(string(body)))
}

// =============================================================================
// HTTP
// =============================================================================

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Referer", c.cfg.BaseURL+"/")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: c.creds.SessionID})
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: c.creds.CSRFToken})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := decodedBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}
