package manifest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const maxManifestBytes = 5 * 1024 * 1024

// Client fetches manifest resources as text. Pure I/O, no parsing.
type Client struct {
	httpClient *http.Client
}

func NewClient(_ *do.Injector) (*Client, error) {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Fetch returns the manifest body at url. An empty body is returned as-is,
// the caller decides whether that skips the iteration.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", oops.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", oops.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", oops.Errorf("manifest fetch failed with status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return "", oops.Errorf("failed to read manifest body: %w", err)
	}

	return string(content), nil
}
