package splice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"adsplice/app/client/adtracker"
	"adsplice/app/client/assetlist"
	"adsplice/app/client/manifest"
	"adsplice/app/config"
	"adsplice/app/dto"
	"adsplice/app/player"
	"adsplice/app/service/cues"
	"adsplice/app/service/lifecycle"
	"adsplice/app/util/telemetry"

	"github.com/samber/do"
	"github.com/samber/oops"
)

var serviceName = "splice"

const (
	mimeHLS = "application/vnd.apple.mpegurl"
	mimeMP4 = "video/mp4"

	progressPollInterval = 250 * time.Millisecond
)

// ErrBreakInProgress means the break was rejected because another break
// holds the player. The caller decides whether the break stays eligible
// for re-detection.
var ErrBreakInProgress = errors.New("ad break already in progress")

// Service is the ad splicer: it swaps the live media source for each ad asset
// in sequence, drives the quartile tracker, then restores the live source.
// It owns PlayerMode and the per-asset playback state.
type Service struct {
	cfg        *config.Config
	player     player.Player
	lifecycle  *lifecycle.Service
	tracker    *adtracker.Client
	assetLists *assetlist.Client
	manifests  *manifest.Client
	tracing    *telemetry.Tracing
	sessionID  dto.SessionID

	mu      sync.Mutex
	mode    dto.PlayerMode
	current *adState
}

// adState tracks the currently playing asset. An event name enters fired at
// most once, that is the whole dedup guarantee for quartiles and complete.
type adState struct {
	mu           sync.Mutex
	adID         string
	trackingURLs map[string]string
	startedAt    time.Time
	fired        map[string]struct{}
	paused       bool
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:        do.MustInvoke[*config.Config](di),
		player:     do.MustInvoke[player.Player](di),
		lifecycle:  do.MustInvoke[*lifecycle.Service](di),
		tracker:    do.MustInvoke[*adtracker.Client](di),
		assetLists: do.MustInvoke[*assetlist.Client](di),
		manifests:  do.MustInvoke[*manifest.Client](di),
		tracing:    do.MustInvoke[*telemetry.Tracing](di),
		sessionID:  do.MustInvoke[dto.SessionID](di),
		mode:       dto.ModeMainContent,
	}, nil
}

// Mode returns the current player mode. The poller skips cue detection
// while this is ModeAdBreak.
func (s *Service) Mode() dto.PlayerMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// CurrentAdID returns the playing asset's ID, or "" outside an ad.
func (s *Service) CurrentAdID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ""
	}

	return s.current.adID
}

// PlayBreak runs one ad break end to end: resolve the asset list, splice each
// asset in order, restore the live source. A failed asset-list fetch abandons
// the break before any break event fires; a break detected while another is
// running returns ErrBreakInProgress.
func (s *Service) PlayBreak(ctx context.Context, brk dto.AdBreak) error {
	ctx, span := s.tracing.StartServiceSpan(ctx, serviceName, "play_break")
	defer span.End()

	if !s.claimBreak() {
		s.tracing.Success(span)
		return ErrBreakInProgress
	}
	defer s.releaseBreak()

	list, err := s.assetLists.Fetch(ctx, brk.AssetListURL)
	if err != nil {
		return s.tracing.Error(span, oops.Errorf("assetLists.Fetch: %w", err))
	}

	slog.Info("Ad break started",
		slog.String("break_id", brk.ID),
		slog.Int("asset_count", len(list.Assets)),
	)

	s.lifecycle.SendCustom(dto.EventAdBreakStart, map[string]any{"adBreakId": brk.ID})
	s.tracker.TrackAdBreak(dto.AdBreakTrackingEvent{
		SessionID: string(s.sessionID),
		EventType: "breakStart",
		AdBreakID: brk.ID,
		Timestamp: time.Now().UnixMilli(),
	})

	for _, asset := range list.Assets {
		if err := s.playAsset(ctx, asset); err != nil {
			// One bad asset does not abort the break.
			slog.Error("Skipping ad asset",
				slog.String("uri", asset.URI),
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			s.tracing.Success(span)
			return nil
		default:
		}
	}

	s.lifecycle.SendCustom(dto.EventAdBreakEnd, map[string]any{"adBreakId": brk.ID})
	s.tracker.TrackAdBreak(dto.AdBreakTrackingEvent{
		SessionID: string(s.sessionID),
		EventType: "breakComplete",
		AdBreakID: brk.ID,
		Timestamp: time.Now().UnixMilli(),
	})

	s.resumeMainContent()

	slog.Info("Ad break completed",
		slog.String("break_id", brk.ID),
	)

	s.tracing.Success(span)

	return nil
}

func (s *Service) claimBreak() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == dto.ModeAdBreak {
		return false
	}

	s.mode = dto.ModeAdBreak

	return true
}

func (s *Service) releaseBreak() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = dto.ModeMainContent
	s.current = nil
}

func (s *Service) playAsset(ctx context.Context, asset dto.AdAsset) error {
	adManifest, err := s.manifests.Fetch(ctx, asset.URI)
	if err != nil {
		return oops.Errorf("manifests.Fetch: %w", err)
	}

	mediaURI := cues.MediaURI(adManifest)
	if mediaURI == "" {
		return oops.Errorf("no playable media URI in ad manifest")
	}

	adID := asset.ResolvedID()

	slog.Info("Splicing ad asset",
		slog.String("ad_id", adID),
		slog.String("uri", mediaURI),
		slog.Float64("duration_s", asset.Duration),
	)

	state := &adState{
		adID:         adID,
		trackingURLs: asset.TrackingURLs,
		startedAt:    time.Now(),
		fired:        make(map[string]struct{}),
	}

	s.mu.Lock()
	s.current = state
	s.mu.Unlock()

	s.player.SetSource(mediaURI, mimeMP4)
	s.player.Prepare()
	s.player.Play()

	s.fireAdEvent(state, "start", dto.EventAdStart)

	// Impression fires with start, best-effort and not gated on playback.
	if pixelURL, ok := asset.TrackingURLs["impression"]; ok {
		s.tracker.SendPixel(pixelURL)
	}

	s.trackProgress(ctx, state, asset.Duration)

	return nil
}

// trackProgress polls the playhead against the asset duration until the
// asset's wall-clock window elapses. Completion is time-driven from splice
// time, not from the engine's end-of-media signal.
func (s *Service) trackProgress(ctx context.Context, state *adState, durationSeconds float64) {
	totalMs := durationSeconds * 1000

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	complete := time.After(time.Duration(durationSeconds * float64(time.Second)))

	for {
		select {
		case <-ctx.Done():
			return
		case <-complete:
			// Idempotent: the 100% tick may already have fired it.
			s.fireAdEventOnce(state, "complete", dto.EventAdComplete)
			return
		case <-ticker.C:
			if !s.player.IsPlaying() {
				continue
			}

			position := float64(s.player.CurrentPosition().Milliseconds())
			percentage := position / totalMs * 100

			s.fireQuartiles(state, percentage)
		}
	}
}

// fireQuartiles fires at most one new threshold event per tick, checked in
// priority order 25, 50, 75. With a coarse poll cadence this can under-report
// adjacent thresholds by one tick each.
func (s *Service) fireQuartiles(state *adState, percentage float64) {
	switch {
	case percentage >= 25 && !state.hasFired("firstQuartile"):
		s.fireAdEvent(state, "firstQuartile", dto.EventAdFirstQuartile)
	case percentage >= 50 && !state.hasFired("midpoint"):
		s.fireAdEvent(state, "midpoint", dto.EventAdMidpoint)
	case percentage >= 75 && !state.hasFired("thirdQuartile"):
		s.fireAdEvent(state, "thirdQuartile", dto.EventAdThirdQuartile)
	}
}

// HandleNotification maps player notifications onto ad events while an asset
// is playing. Subscribed to the player channel independently of the
// lifecycle tracker.
func (s *Service) HandleNotification(message any) {
	s.mu.Lock()
	state := s.current
	inBreak := s.mode == dto.ModeAdBreak
	s.mu.Unlock()

	if !inBreak || state == nil {
		return
	}

	switch msg := message.(type) {
	case player.IsPlayingChanged:
		if msg.IsPlaying {
			if state.clearPaused() {
				s.lifecycle.SendCustom(dto.EventAdResume, map[string]any{"adId": state.adID})
			}
		} else if s.player.PlaybackState() == player.StateReady {
			state.markPaused()
			s.lifecycle.SendCustom(dto.EventAdPause, map[string]any{"adId": state.adID})
		}
	case player.PlayerError:
		s.lifecycle.SendCustom(dto.EventAdError, map[string]any{
			"adId":    state.adID,
			"code":    msg.Code,
			"message": msg.Message,
		})
	}
}

// fireAdEvent dispatches one ad event to the lifecycle sink, the tracking
// backend and the matching tracking pixel, marking it fired.
func (s *Service) fireAdEvent(state *adState, trackingName string, eventType dto.EventType) {
	state.markFired(trackingName)

	s.lifecycle.SendCustom(eventType, map[string]any{"adId": state.adID})
	s.tracker.TrackAd(dto.AdTrackingEvent{
		SessionID:        string(s.sessionID),
		EventType:        trackingName,
		AdID:             state.adID,
		Timestamp:        time.Now().UnixMilli(),
		PlaybackPosition: s.player.CurrentPosition().Milliseconds(),
	})

	if pixelURL, ok := state.trackingURLs[trackingName]; ok {
		s.tracker.SendPixel(pixelURL)
	}
}

func (s *Service) fireAdEventOnce(state *adState, trackingName string, eventType dto.EventType) {
	if state.hasFired(trackingName) {
		return
	}

	s.fireAdEvent(state, trackingName, eventType)
}

func (s *Service) resumeMainContent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.player.SetSource(s.cfg.Stream.URL, mimeHLS)
	s.player.Prepare()
	s.player.Play()
}

func (a *adState) markFired(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fired[name] = struct{}{}
}

func (a *adState) hasFired(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.fired[name]
	return ok
}

func (a *adState) markPaused() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.paused = true
}

// clearPaused resets the pause flag, reporting whether a pause was pending.
// One ad_resume per ad_pause, a later playing transition fires nothing.
func (a *adState) clearPaused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	wasPaused := a.paused
	a.paused = false

	return wasPaused
}
