package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tenderwatch/tenderwatch/internal/config"
	"github.com/tenderwatch/tenderwatch/internal/types"
)

var (
	// ErrRateLimited means the upstream API returned 429 and the bounded
	// backoff retries were exhausted.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrUnavailable covers network failures and 5xx responses. Both are
	// transient per-keyword failures, never fatal to a whole search batch.
	ErrUnavailable = errors.New("upstream unavailable")
)

// page mirrors one page of the upstream search response. Field types are
// flexible because the API is inconsistent about quoting numbers and returns
// a bare object for single-record pages.
type page struct {
	Records    types.FlexList[json.RawMessage] `json:"records"`
	Page       types.FlexUint64                `json:"page"`
	TotalPages types.FlexUint64                `json:"total_pages"`
}

// Client queries the third-party tender API per keyword.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries int
	PageSize   int
}

// New builds a client from the service configuration. Every request is
// bounded by the configured timeout.
func New(cfg *config.Config) *Client {
	return &Client{
		BaseURL:    cfg.UpstreamURL,
		APIKey:     cfg.UpstreamAPIKey,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		MaxRetries: cfg.UpstreamRetries,
		PageSize:   cfg.UpstreamPageSize,
	}
}

// Search fetches every result page for one keyword and returns the raw
// records. Rate limiting is retried with jittered exponential backoff up to
// MaxRetries per page before ErrRateLimited is surfaced.
func (c *Client) Search(ctx context.Context, keyword string) ([]json.RawMessage, error) {
	var records []json.RawMessage

	for pageNum := uint64(1); ; pageNum++ {
		p, err := c.fetchPage(ctx, keyword, pageNum)
		if err != nil {
			return nil, err
		}

		records = append(records, p.Records.Slice()...)

		if p.TotalPages.Uint64() == 0 || pageNum >= p.TotalPages.Uint64() {
			break
		}
	}

	return records, nil
}

// fetchPage requests one page, handling 429 backoff.
func (c *Client) fetchPage(ctx context.Context, keyword string, pageNum uint64) (*page, error) {
	for attempt := 0; ; attempt++ {
		p, retryable, err := c.doRequest(ctx, keyword, pageNum)
		if err == nil {
			return p, nil
		}
		if !retryable || attempt >= c.MaxRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(backoffDelay(attempt)):
		}
	}
}

func (c *Client) doRequest(ctx context.Context, keyword string, pageNum uint64) (*page, bool, error) {
	endpoint := fmt.Sprintf("%s/tenders", c.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	q := url.Values{}
	q.Set("query", keyword)
	q.Set("page", strconv.FormatUint(pageNum, 10))
	q.Set("page_size", strconv.Itoa(c.PageSize))
	req.URL.RawQuery = q.Encode()

	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, false, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	return &p, false, nil
}

// backoffDelay computes the jittered exponential delay for the given attempt.
func backoffDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond << uint(attempt)
	if base > 5*time.Second {
		base = 5 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
