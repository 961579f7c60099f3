package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrBadStatus marks a non-2xx response from the source page.
var ErrBadStatus = errors.New("unexpected http status")

// PageOptions parameterise the page fetcher.
type PageOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Page fetches a single fixed URL over plain HTTP GET. It never retries;
// retry policy, if any, belongs to the caller.
type Page struct {
	opts   PageOptions
	logger zerolog.Logger
	client *http.Client
}

// NewPage constructs a page fetcher.
func NewPage(opts PageOptions, logger zerolog.Logger) *Page {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Page{
		opts:   opts,
		logger: logger.With().Str("component", "page_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchPage issues one GET and returns the raw document body.
func (p *Page) FetchPage(ctx context.Context) (string, error) {
	if p.opts.URL == "" {
		return "", errors.New("source url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "twodwatcher/1.0")
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch overview page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read overview page: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	p.logger.Debug().
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(started)).
		Msg("page fetched")

	return string(body), nil
}

var _ PageFetcher = (*Page)(nil)
