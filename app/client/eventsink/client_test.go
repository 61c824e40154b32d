package eventsink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"adsplice/app/config"
	"adsplice/app/dto"

	"github.com/go-playground/assert/v2"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{} //nolint:exhaustruct
	cfg.Analytics.EventSinkURL = server.URL

	di := do.New()
	do.ProvideValue(di, cfg)

	client, err := NewClient(di)
	require.NoError(t, err)

	return client
}

func TestSendPostsEvent(t *testing.T) {
	var mu sync.Mutex
	var received []dto.SinkEvent

	client := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)

		var event dto.SinkEvent
		if err := json.Unmarshal(body, &event); err == nil {
			mu.Lock()
			received = append(received, event)
			mu.Unlock()
		}

		w.WriteHeader(http.StatusOK)
	})

	client.Send(dto.SinkEvent{
		Event:     dto.EventPlaying,
		SessionID: "s1",
		Timestamp: 1234,
		Playhead:  5000,
		Duration:  -1,
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, dto.EventPlaying, received[0].Event)
	assert.Equal(t, "s1", received[0].SessionID)
	assert.Equal(t, int64(-1), received[0].Duration)
}

func TestHealthCheckOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestHealthCheckToleratesClientErrors(t *testing.T) {
	// A sink that answers at all is reachable; only 5xx means down.
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestHealthCheckRetriesThenSucceeds(t *testing.T) {
	var calls int
	var mu sync.Mutex

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		current := calls
		mu.Unlock()

		if current == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.HealthCheck(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}
