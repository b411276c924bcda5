package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matthieukhl/storepulse/internal/config"
	"github.com/matthieukhl/storepulse/internal/models"
	"github.com/matthieukhl/storepulse/internal/types"
	"go.uber.org/zap"
)

const (
	// PageLimit is the largest page the orders endpoint will serve.
	PageLimit = 250

	initialBackoff = 1.0 * float64(time.Second)
	backoffFactor  = 1.7
	maxBackoff     = 6 * time.Second

	accessTokenHeader = "X-Shopify-Access-Token"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Options configure a Client. Zero values fall back to the defaults of the
// scheduled job.
type Options struct {
	BaseURL     string
	AccessToken string
	MaxRetries  int
	PageDelay   time.Duration
	Timeout     time.Duration
	HTTPClient  *http.Client
	Sleep       Sleeper
	Logger      *zap.Logger
}

// Client harvests paginated collections from the shop admin API. Requests
// are issued one at a time; each page depends on the previous page's Link
// header.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	pageDelay  time.Duration
	client     *http.Client
	sleep      Sleeper
	log        *zap.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("shop base URL is required")
	}
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("shop access token is required")
	}

	c := &Client{
		baseURL:    opts.BaseURL,
		token:      opts.AccessToken,
		maxRetries: opts.MaxRetries,
		pageDelay:  opts.PageDelay,
		client:     opts.HTTPClient,
		sleep:      opts.Sleep,
		log:        opts.Logger,
	}
	if c.maxRetries < 1 {
		c.maxRetries = 6
	}
	if c.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.client = &http.Client{Timeout: timeout}
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// NewClientFromConfig creates a client for the configured shop
func NewClientFromConfig(cfg *config.ShopConfig, logger *zap.Logger) (*Client, error) {
	return NewClient(Options{
		BaseURL:     cfg.APIBaseURL(),
		AccessToken: cfg.AccessToken,
		MaxRetries:  cfg.MaxRetries,
		PageDelay:   cfg.PageDelay,
		Timeout:     cfg.Timeout,
		Logger:      logger,
	})
}

// Fetch retrieves every record of a collection created within window. The
// first request carries status=any, limit=250 and the window bounds, with
// params applied on top; continuation pages are requested exactly as the
// server linked them.
func (c *Client) Fetch(ctx context.Context, kind string, window models.Window, params url.Values) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("status", "any")
	query.Set("limit", strconv.Itoa(PageLimit))
	query.Set("created_at_min", window.MinParam())
	query.Set("created_at_max", window.MaxParam())
	for key, values := range params {
		query[key] = values
	}

	return c.collect(ctx, kind, c.collectionURL(kind)+"?"+query.Encode())
}

// FetchOrders retrieves and decodes the orders created within window.
func (c *Client) FetchOrders(ctx context.Context, window models.Window, params url.Values) ([]models.Order, error) {
	raw, err := c.Fetch(ctx, "orders", window, params)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(raw))
	for i, r := range raw {
		var o models.Order
		if err := json.Unmarshal(r, &o); err != nil {
			return nil, fmt.Errorf("failed to decode order %d: %w", i, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// FetchLocations retrieves the shop's locations.
func (c *Client) FetchLocations(ctx context.Context) ([]models.Location, error) {
	raw, err := c.collect(ctx, "locations", c.collectionURL("locations"))
	if err != nil {
		return nil, err
	}

	locations := make([]models.Location, 0, len(raw))
	for i, r := range raw {
		var l models.Location
		if err := json.Unmarshal(r, &l); err != nil {
			return nil, fmt.Errorf("failed to decode location %d: %w", i, err)
		}
		locations = append(locations, l)
	}
	return locations, nil
}

func (c *Client) collectionURL(kind string) string {
	return c.baseURL + "/" + kind + ".json"
}

func (c *Client) collect(ctx context.Context, kind, next string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for page := 1; next != ""; page++ {
		res, err := c.getWithBackoff(ctx, kind, next)
		if err != nil {
			return nil, err
		}

		var payload map[string]json.RawMessage
		if err := json.Unmarshal(res.body, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s page %d: %w", kind, page, err)
		}
		var records []json.RawMessage
		if field, ok := payload[kind]; ok {
			if err := json.Unmarshal(field, &records); err != nil {
				return nil, fmt.Errorf("failed to decode %s page %d: %w", kind, page, err)
			}
		}
		out = append(out, records...)

		c.log.Debug("fetched page",
			zap.String("kind", kind),
			zap.Int("page", page),
			zap.Int("records", len(records)),
		)

		next = parseNextLink(res.header.Get("Link"))
		if next != "" && c.pageDelay > 0 {
			if err := c.sleep(ctx, c.pageDelay); err != nil {
				return nil, err
			}
		}
	}

	c.log.Info("fetch complete", zap.String("kind", kind), zap.Int("records", len(out)))
	return out, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// getWithBackoff issues GET rawURL, retrying throttled and transient
// responses with exponential backoff: 1s, 1.7s, 2.89s, ... capped at 6s.
func (c *Client) getWithBackoff(ctx context.Context, kind, rawURL string) (*response, error) {
	wait := initialBackoff
	var last *response
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		res, err := c.get(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
		}

		if res.status >= 200 && res.status < 300 {
			return res, nil
		}
		if !retryable(res.status) {
			return nil, &FetchError{
				Kind:   kind,
				URL:    rawURL,
				Status: res.status,
				Body:   excerpt(res.body, maxErrorBody),
			}
		}

		last = res
		if attempt == c.maxRetries {
			break
		}

		delay := time.Duration(wait)
		if delay > maxBackoff {
			delay = maxBackoff
		}
		c.log.Warn("throttled, backing off",
			zap.String("kind", kind),
			zap.Int("status", res.status),
			zap.Int("attempt", attempt),
			zap.Duration("wait", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		wait *= backoffFactor
	}

	return nil, &FetchError{
		Kind:   kind,
		URL:    rawURL,
		Status: last.status,
		Body:   excerpt(last.body, maxErrorBody),
		Err:    ErrThrottled,
	}
}

func (c *Client) get(ctx context.Context, rawURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(accessTokenHeader, c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Compile-time interface check
var _ types.OrderSource = (*Client)(nil)
