package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"adsplice/app/client/eventsink"
	"adsplice/app/config"
	"adsplice/app/dto"
	"adsplice/app/player"

	"github.com/samber/do"
)

var serviceName = "lifecycle"

// Service converts playback-engine notifications into the canonical event
// taxonomy, deduplicating and sequencing them before they reach the sink.
// One instance lives for the whole engine run; loadedEventSent is never reset.
type Service struct {
	cfg       *config.Config
	sink      *eventsink.Client
	player    player.Player
	sessionID dto.SessionID

	mu               sync.Mutex
	loadedEventSent  bool
	bufferingOngoing bool
	seekingOngoing   bool
	stopped          bool
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:       do.MustInvoke[*config.Config](di),
		sink:      do.MustInvoke[*eventsink.Client](di),
		player:    do.MustInvoke[player.Player](di),
		sessionID: do.MustInvoke[dto.SessionID](di),
	}, nil
}

// Initialize fires the init/metadata/loading triple that opens every session.
func (s *Service) Initialize() {
	s.send(dto.EventInit, 0, -1, nil)
	s.send(dto.EventMetadata, 0, 0, map[string]any{
		"live":         s.cfg.Analytics.Live,
		"contentTitle": s.cfg.Analytics.ContentTitle,
		"deviceType":   s.cfg.Analytics.DeviceType,
	})
	s.send(dto.EventLoading, 0, 0, nil)
}

// HandleNotification is the single state-transition entry point, subscribed
// to the player channel on the bus.
func (s *Service) HandleNotification(message any) {
	switch msg := message.(type) {
	case player.StateChanged:
		s.onStateChanged(msg.State)
	case player.IsPlayingChanged:
		s.onIsPlayingChanged(msg.IsPlaying)
	case player.PositionDiscontinuity:
		if msg.Reason == player.DiscontinuitySeek {
			s.mu.Lock()
			s.seekingOngoing = true
			s.mu.Unlock()

			s.sendAtPlayhead(dto.EventSeeking, nil)
		}
	case player.SeekProcessed:
		s.mu.Lock()
		wasSeeking := s.seekingOngoing
		s.seekingOngoing = false
		s.mu.Unlock()

		if wasSeeking {
			s.sendAtPlayhead(dto.EventSeeked, nil)
		}
	case player.FormatChanged:
		s.sendAtPlayhead(dto.EventBitrateChanged, map[string]any{
			"bitrate": msg.BitrateKbps,
			"width":   msg.Width,
			"height":  msg.Height,
		})
	case player.PlayerError:
		s.sendAtPlayhead(dto.EventError, map[string]any{
			"category": msg.Category,
			"code":     msg.Code,
			"message":  msg.Message,
		})
	default:
		slog.Debug("Ignoring unknown player notification",
			slog.Any("message", message),
		)
	}
}

func (s *Service) onStateChanged(state player.State) {
	switch state {
	case player.StateBuffering:
		s.mu.Lock()
		s.bufferingOngoing = true
		s.mu.Unlock()

		s.sendAtPlayhead(dto.EventBuffering, nil)
	case player.StateReady:
		s.mu.Lock()
		wasBuffering := s.bufferingOngoing
		s.bufferingOngoing = false
		firstReady := !s.loadedEventSent
		s.loadedEventSent = true
		s.mu.Unlock()

		if wasBuffering {
			s.sendAtPlayhead(dto.EventBuffered, nil)
		}
		if firstReady {
			s.send(dto.EventLoaded, 0, 0, nil)
		}
		if s.player.PlayWhenReady() {
			s.sendAtPlayhead(dto.EventPlaying, nil)
		}
	case player.StateEnded:
		s.sendAtPlayhead(dto.EventStopped, map[string]any{
			"reason": "Playback ended",
		})
	case player.StateIdle:
	}
}

func (s *Service) onIsPlayingChanged(isPlaying bool) {
	if isPlaying {
		s.sendAtPlayhead(dto.EventPlaying, nil)
		return
	}

	state := s.player.PlaybackState()
	if state != player.StateBuffering && state != player.StateEnded {
		s.sendAtPlayhead(dto.EventPaused, nil)
	}
}

// RunHeartbeatLoop emits heartbeat events at the configured interval until
// the engine context is canceled.
func (s *Service) RunHeartbeatLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Analytics.HeartbeatInterval):
		}

		s.sendAtPlayhead(dto.EventHeartbeat, nil)
	}
}

// StopTracking fires the final stopped event with a human-readable reason.
// Everything after it is dropped, including a late engine-driven stopped.
func (s *Service) StopTracking(reason string) {
	s.mu.Lock()
	alreadyStopped := s.stopped
	s.stopped = true
	s.mu.Unlock()

	if alreadyStopped {
		return
	}

	s.deliver(dto.EventStopped, s.player.CurrentPosition().Milliseconds(), durationMs(s.player.Duration()), map[string]any{
		"reason": reason,
	})
}

// SendCustom emits an arbitrary taxonomy event, used by the ad splicer for
// the ad_* events. Unknown names are logged and skipped, never a crash.
func (s *Service) SendCustom(eventType dto.EventType, payload map[string]any) {
	if !eventType.Known() {
		slog.Warn("Dropping unknown custom event",
			slog.String("service", serviceName),
			slog.String("event", string(eventType)),
		)
		return
	}

	s.sendAtPlayhead(eventType, payload)
}

func (s *Service) sendAtPlayhead(eventType dto.EventType, payload map[string]any) {
	s.send(eventType, s.player.CurrentPosition().Milliseconds(), durationMs(s.player.Duration()), payload)
}

func (s *Service) send(eventType dto.EventType, playhead int64, duration int64, payload map[string]any) {
	s.mu.Lock()
	dropped := s.stopped
	s.mu.Unlock()

	if dropped {
		slog.Debug("Dropping event after stop",
			slog.String("event", string(eventType)),
		)
		return
	}

	s.deliver(eventType, playhead, duration, payload)
}

func (s *Service) deliver(eventType dto.EventType, playhead int64, duration int64, payload map[string]any) {
	s.sink.Send(dto.SinkEvent{
		Event:     eventType,
		SessionID: string(s.sessionID),
		Timestamp: time.Now().UnixMilli(),
		Playhead:  playhead,
		Duration:  duration,
		Payload:   payload,
	})
}

func durationMs(d time.Duration) int64 {
	if d < 0 {
		return -1
	}

	return d.Milliseconds()
}
