package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPFetcher retrieves broadcast images over HTTP. The zero value is not
// usable; construct with NewHTTPFetcher.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher backed by the given client. A nil client
// falls back to http.DefaultClient. Per-request deadlines come from the
// caller's context, not the client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads the resource at url and returns its body. Any non-2xx
// status is an error; the caller falls back to a text-only send in that
// case, so the body is never partially consumed here.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch image: unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}
