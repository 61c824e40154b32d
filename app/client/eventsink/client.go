package eventsink

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

	"github.com/avast/retry-go"
	"github.com/samber/do"
	"github.com/samber/oops"
)

// Client delivers lifecycle events to the configured event sink.
// Sends are fire-and-forget: failures are logged and dropped, never retried,
// and never block the caller.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// HealthCheck probes the sink once at startup so a misconfigured URL is
// caught before the engine starts emitting.
func (c *Client) HealthCheck(ctx context.Context) error {
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Analytics.EventSinkURL, nil)
		if err != nil {
			return oops.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oops.Errorf("failed to reach event sink: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusInternalServerError {
			return oops.Errorf("event sink returned status %d", resp.StatusCode)
		}

		return nil
	}, retry.Context(ctx), retry.Attempts(3), retry.Delay(2*time.Second))
	if err != nil {
		return oops.Errorf("retry.Do: %w", err)
	}

	return nil
}

// Send posts the event in a detached goroutine and returns immediately.
func (c *Client) Send(event dto.SinkEvent) {
	go func() {
		if err := c.post(event); err != nil {
			slog.Error("Failed to send event to sink",
				slog.String("event", string(event.Event)),
				slog.Any("error", err),
			)
		}
	}()
}

func (c *Client) post(event dto.SinkEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return oops.Errorf("failed to marshal event: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.Analytics.EventSinkURL, "/")

	// Detached from the engine context: a teardown must not cancel an event
	// already handed off, a late response is simply discarded.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return oops.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return oops.Errorf("event sink returned status %d", resp.StatusCode)
	}

	return nil
}
