package assetlist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"adsplice/app/dto"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const maxAssetListBytes = 1024 * 1024

// Client resolves an X-ASSET-LIST URL into the ordered list of ad assets.
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

// Fetch decodes the asset list document at url. Any fetch or decode failure
// abandons the break; there is no retry, the next poll cycle re-detects cues.
func (c *Client) Fetch(ctx context.Context, url string) (*dto.AssetList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, oops.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Errorf("failed to fetch asset list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, oops.Errorf("asset list fetch failed with status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetListBytes))
	if err != nil {
		return nil, oops.Errorf("failed to read asset list body: %w", err)
	}

	var result dto.AssetList
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to decode asset list: %w", err)
	}

	return &result, nil
}
