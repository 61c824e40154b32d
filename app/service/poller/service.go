package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"adsplice/app/client/manifest"
	"adsplice/app/config"
	"adsplice/app/dto"
	"adsplice/app/service/cues"
	"adsplice/app/service/splice"
	"adsplice/app/util/telemetry"

	"github.com/jellydator/ttlcache/v3"
	"github.com/samber/do"
	"github.com/samber/oops"
)

var serviceName = "poller"

// Service is the root orchestrator: it polls the stream manifest, extracts ad
// cues and hands detected breaks to the splicer. No poll failure is fatal,
// the loop only stops with the engine context.
type Service struct {
	cfg       *config.Config
	manifests *manifest.Client
	splicer   *splice.Service
	tracing   *telemetry.Tracing

	// Recently processed break IDs; the same cue stays in the live manifest
	// for several polls and must not re-trigger right after its break ends.
	seenBreaks *ttlcache.Cache[string, struct{}]

	mu               sync.Mutex
	previousManifest string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	seenBreaks := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](cfg.Stream.BreakDedupTTL),
	)
	go seenBreaks.Start()

	return &Service{
		cfg:        cfg,
		manifests:  do.MustInvoke[*manifest.Client](di),
		splicer:    do.MustInvoke[*splice.Service](di),
		tracing:    do.MustInvoke[*telemetry.Tracing](di),
		seenBreaks: seenBreaks,
	}, nil
}

// RunPollLoop polls the manifest at the configured interval until the engine
// context is canceled. A fetch in flight at cancellation is abandoned.
func (s *Service) RunPollLoop(ctx context.Context) {
	slog.Info("Starting manifest poll loop",
		slog.String("url", s.cfg.Stream.URL),
		slog.Duration("interval", s.cfg.Stream.PollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.doPoll(ctx); err != nil {
			slog.ErrorContext(ctx, "Manifest poll failed",
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Stream.PollInterval):
		}
	}
}

func (s *Service) doPoll(ctx context.Context) error {
	ctx, span := s.tracing.StartServiceSpan(ctx, serviceName, "poll")
	defer span.End()

	content, err := s.manifests.Fetch(ctx, s.cfg.Stream.URL)
	if err != nil || content == "" {
		// Skip this iteration, the next tick retries naturally.
		slog.Debug("Skipping poll iteration",
			slog.Any("error", err),
		)
		s.tracing.Success(span)
		return nil
	}

	s.mu.Lock()
	unchanged := content == s.previousManifest
	s.previousManifest = content
	s.mu.Unlock()

	if unchanged {
		slog.Debug("Manifest unchanged since last poll")
	}

	if s.splicer.Mode() != dto.ModeMainContent {
		s.tracing.Success(span)
		return nil
	}

	breaks, err := s.extractBreaks(ctx, content)
	if err != nil {
		return s.tracing.Error(span, err)
	}

	for _, brk := range breaks {
		if s.seenBreaks.Has(brk.ID) {
			continue
		}
		s.seenBreaks.Set(brk.ID, struct{}{}, ttlcache.DefaultTTL)

		slog.Info("Detected ad cue",
			slog.String("break_id", brk.ID),
			slog.String("asset_list_url", brk.AssetListURL),
		)

		// The splicer run must not stall polling; mode gating makes
		// concurrent runs mutually exclusive.
		go func(brk dto.AdBreak) {
			err := s.splicer.PlayBreak(ctx, brk)
			if err == nil {
				return
			}

			// Only completed breaks stay suppressed. A break that never
			// ran must be re-detectable on the next poll cycle.
			s.seenBreaks.Delete(brk.ID)

			if errors.Is(err, splice.ErrBreakInProgress) {
				slog.Debug("Ad break deferred, another break is running",
					slog.String("break_id", brk.ID),
				)
				return
			}

			slog.ErrorContext(ctx, "Ad break abandoned",
				slog.String("break_id", brk.ID),
				slog.Any("error", err),
			)
		}(brk)
	}

	s.tracing.Success(span)

	return nil
}

// extractBreaks runs cue extraction, taking the multivariant detour through
// the rendition manifest when the root manifest carries ad markers.
func (s *Service) extractBreaks(ctx context.Context, content string) ([]dto.AdBreak, error) {
	if !cues.HasAdMarkers(content) {
		// Cue markers can sit directly in a media playlist.
		return cues.Extract(content, s.cfg.Stream.URL, s.cfg.Stream.LoopbackRewriteHost), nil
	}

	variantURL := cues.VariantURI(content, s.cfg.Stream.URL)
	if variantURL == "" {
		return cues.Extract(content, s.cfg.Stream.URL, s.cfg.Stream.LoopbackRewriteHost), nil
	}

	rendition, err := s.manifests.Fetch(ctx, variantURL)
	if err != nil {
		return nil, oops.Errorf("manifests.Fetch rendition: %w", err)
	}
	if rendition == "" {
		return nil, nil
	}

	return cues.Extract(rendition, variantURL, s.cfg.Stream.LoopbackRewriteHost), nil
}

// Shutdown stops the dedup cache janitor.
func (s *Service) Shutdown() error {
	s.seenBreaks.Stop()
	return nil
}
