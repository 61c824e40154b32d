package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"adsplice/app/client/adtracker"
	"adsplice/app/client/assetlist"
	"adsplice/app/client/eventsink"
	"adsplice/app/client/manifest"
	"adsplice/app/config"
	"adsplice/app/dto"
	"adsplice/app/player"
	"adsplice/app/service/lifecycle"
	"adsplice/app/service/splice"
	"adsplice/app/util/telemetry"

	"github.com/go-playground/assert/v2"
	"github.com/samber/do"
	"github.com/stretchr/testify/require"
)

type noopPlayer struct{}

func (noopPlayer) SetSource(_ string, _ string) {}
func (noopPlayer) Prepare() {}
func (noopPlayer) Play() {}
func (noopPlayer) Pause() {}
func (noopPlayer) CurrentPosition() time.Duration { return 0 }
func (noopPlayer) Duration() time.Duration { return -1 }
func (noopPlayer) PlayWhenReady() bool { return true }
func (noopPlayer) PlaybackState() player.State { return player.StateReady }
func (noopPlayer) IsPlaying() bool { return true }

type breakRecorder struct {
	mu     sync.Mutex
	events []dto.AdBreakTrackingEvent
}

func (r *breakRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)

		if req.URL.Path == "/track/adbreak" {
			var event dto.AdBreakTrackingEvent
			if err := json.Unmarshal(body, &event); err == nil {
				r.mu.Lock()
				r.events = append(r.events, event)
				r.mu.Unlock()
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (r *breakRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, event := range r.events {
		if event.EventType == eventType {
			count++
		}
	}

	return count
}

func (r *breakRecorder) breakIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for _, event := range r.events {
		if event.EventType == "breakStart" {
			ids = append(ids, event.AdBreakID)
		}
	}

	return ids
}

type pollerEnv struct {
	svc      *Service
	recorder *breakRecorder

	mu         sync.Mutex
	manifest   string
	listStatus int
}

func (e *pollerEnv) setManifest(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manifest = content
}

func (e *pollerEnv) setListStatus(status int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listStatus = status
}

// newPollerEnv builds the full detection pipeline against httptest backends.
// The stream server serves / as the polled manifest (mutable via setManifest),
// /rendition.m3u8 as a fixed rendition and /list.json as an empty asset list.
func newPollerEnv(t *testing.T, rendition string) *pollerEnv {
	t.Helper()

	env := &pollerEnv{}

	recorder := &breakRecorder{}
	trackingServer := httptest.NewServer(recorder.handler())
	t.Cleanup(trackingServer.Close)

	sinkServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(sinkServer.Close)

	streamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/rendition.m3u8":
			fmt.Fprint(w, rendition)
		case "/list.json":
			env.mu.Lock()
			status := env.listStatus
			env.mu.Unlock()

			if status != 0 && status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			fmt.Fprint(w, `{"ASSETS":[]}`)
		default:
			env.mu.Lock()
			content := env.manifest
			env.mu.Unlock()
			fmt.Fprint(w, content)
		}
	}))
	t.Cleanup(streamServer.Close)

	cfg := &config.Config{} //nolint:exhaustruct
	cfg.Stream.URL = streamServer.URL + "/live.m3u8"
	cfg.Stream.PollInterval = 30 * time.Millisecond
	cfg.Stream.BreakDedupTTL = time.Minute
	cfg.Analytics.EventSinkURL = sinkServer.URL
	cfg.Tracking.BaseURL = trackingServer.URL

	di := do.New()
	do.ProvideValue(di, cfg)
	do.ProvideValue[player.Player](di, noopPlayer{})
	do.ProvideValue(di, dto.SessionID("test-session"))
	do.Provide(di, manifest.NewClient)
	do.Provide(di, assetlist.NewClient)
	do.Provide(di, eventsink.NewClient)
	do.Provide(di, adtracker.NewClient)
	do.Provide(di, lifecycle.New)
	do.Provide(di, splice.New)

	tel, err := telemetry.Init(cfg)
	require.NoError(t, err)
	do.ProvideValue(di, telemetry.NewTracing(cfg, tel.Tracer))

	svc, err := New(di)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown() })

	env.svc = svc
	env.recorder = recorder

	return env
}

const plainManifest = "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.0,\nseg1.ts\n"

func cueManifest(breakID string, listURL string) string {
	return "#EXTM3U\n" +
		fmt.Sprintf("#EXT-X-DATERANGE:ID=\"%s\",CLASS=\"com.apple.hls.interstitial\",X-ASSET-LIST=\"%s\"\n", breakID, listURL) +
		"#EXTINF:4.0,\nseg1.ts\n"
}

func TestPollDetectsCue(t *testing.T) {
	env := newPollerEnv(t, "")
	env.setManifest(cueManifest("br1", "/list.json"))

	require.NoError(t, env.svc.doPoll(context.Background()))

	require.Eventually(t, func() bool {
		return env.recorder.count("breakStart") == 1 &&
			env.recorder.count("breakComplete") == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"br1"}, env.recorder.breakIDs())
}

func TestPollDeduplicatesBreaks(t *testing.T) {
	env := newPollerEnv(t, "")
	env.setManifest(cueManifest("br1", "/list.json"))

	require.NoError(t, env.svc.doPoll(context.Background()))

	require.Eventually(t, func() bool {
		return env.recorder.count("breakComplete") == 1
	}, 3*time.Second, 10*time.Millisecond)

	// The cue stays in the manifest across polls, the break must not rerun.
	require.NoError(t, env.svc.doPoll(context.Background()))
	require.NoError(t, env.svc.doPoll(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, env.recorder.count("breakStart"))
}

func TestPollMultivariantDetour(t *testing.T) {
	rendition := cueManifest("br-rendition", "/list.json")
	env := newPollerEnv(t, rendition)

	env.setManifest("#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=1280x720\n" +
		"rendition.m3u8\n")

	require.NoError(t, env.svc.doPoll(context.Background()))

	require.Eventually(t, func() bool {
		return env.recorder.count("breakStart") == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"br-rendition"}, env.recorder.breakIDs())
}

func TestPollNoMarkersNoOp(t *testing.T) {
	env := newPollerEnv(t, "")
	env.setManifest(plainManifest)

	require.NoError(t, env.svc.doPoll(context.Background()))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, env.recorder.count("breakStart"))
}

func TestPollLoopStopsOnCancel(t *testing.T) {
	env := newPollerEnv(t, "")
	env.setManifest(plainManifest)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.svc.RunPollLoop(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("poll loop did not stop after cancel")
	}
}

func TestPollRetriesBreakAfterAssetListFailure(t *testing.T) {
	env := newPollerEnv(t, "")
	env.setManifest(cueManifest("br-retry", "/list.json"))
	env.setListStatus(http.StatusInternalServerError)

	require.NoError(t, env.svc.doPoll(context.Background()))

	// The asset-list fetch fails, so the break never starts.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, env.recorder.count("breakStart"))

	// The same cue must re-trigger once the asset list is reachable again.
	env.setListStatus(http.StatusOK)

	require.Eventually(t, func() bool {
		require.NoError(t, env.svc.doPoll(context.Background()))
		return env.recorder.count("breakStart") == 1
	}, 3*time.Second, 50*time.Millisecond)
}
