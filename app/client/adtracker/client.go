package adtracker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"adsplice/app/config"
	"adsplice/app/dto"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const pixelUserAgent = "adsplice/1.0"

// Client is the ad tracking dispatcher: structured events to the tracking
// backend plus raw beacon pixels for third-party VAST URLs. Everything here
// is fire-and-forget, a delivery failure never affects playback.
type Client struct {
	cfg         *config.Config
	httpClient  *http.Client
	pixelClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		pixelClient: &http.Client{
			// Redirects are followed by default, pixel endpoints rely on it.
			Timeout: 5 * time.Second,
		},
	}, nil
}

// TrackAd posts an ad event to track/ad in a detached goroutine.
func (c *Client) TrackAd(event dto.AdTrackingEvent) {
	go func() {
		if err := c.post("track/ad", event); err != nil {
			slog.Error("Failed to send ad tracking event",
				slog.String("event_type", event.EventType),
				slog.String("ad_id", event.AdID),
				slog.Any("error", err),
			)
		}
	}()
}

// TrackAdBreak posts an ad break event to track/adbreak in a detached goroutine.
func (c *Client) TrackAdBreak(event dto.AdBreakTrackingEvent) {
	go func() {
		if err := c.post("track/adbreak", event); err != nil {
			slog.Error("Failed to send ad break tracking event",
				slog.String("event_type", event.EventType),
				slog.String("ad_break_id", event.AdBreakID),
				slog.Any("error", err),
			)
		}
	}()
}

// SendPixel fires a tracking pixel GET. The response body is ignored, only
// the side effect at the third-party endpoint matters.
func (c *Client) SendPixel(pixelURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pixelURL, nil)
		if err != nil {
			slog.Error("Failed to create tracking pixel request",
				slog.String("url", pixelURL),
				slog.Any("error", err),
			)
			return
		}
		req.Header.Set("User-Agent", pixelUserAgent)

		resp, err := c.pixelClient.Do(req)
		if err != nil {
			slog.Error("Failed to send tracking pixel",
				slog.String("url", pixelURL),
				slog.Any("error", err),
			)
			return
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		slog.Debug("Tracking pixel sent",
			slog.String("url", pixelURL),
			slog.Int("status", resp.StatusCode),
		)
	}()
}

func (c *Client) post(path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return oops.Errorf("failed to marshal payload: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.Tracking.BaseURL, "/") + "/" + path

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return oops.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Errorf("failed to post tracking event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return oops.Errorf("tracking backend returned status %d", resp.StatusCode)
	}

	return nil
}
