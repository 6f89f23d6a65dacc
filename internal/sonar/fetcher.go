package sonar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/qualitytrend/sonarscrape/internal/contract"
)

// HTTPFetcher issues plain GET requests. It never retries.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

var _ contract.Fetcher = &HTTPFetcher{} // Compile-time check

// NewHTTPFetcher creates a fetcher. A zero timeout keeps the net/http default.
func NewHTTPFetcher(timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = contract.DiscardLogger()
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Get performs one GET and returns the body of a 2xx response.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return nil, &HostError{Host: hostOf(rawURL), Err: err}
		}
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	f.logger.Debug("GET", "url", rawURL, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", rawURL, err)
	}
	return body, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
