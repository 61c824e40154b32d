package player

import (
	"log/slog"
	"sync"
	"time"

	ps "adsplice/app/service/pubsub"
)

// Clock is a headless playback engine: it never decodes media, it just
// advances the playhead in wall-clock time while "playing". It stands in for
// a real decoder when the engine runs without one and in tests.
type Clock struct {
	bus *ps.Service

	mu            sync.Mutex
	uri           string
	mime          string
	state         State
	playWhenReady bool
	playing       bool
	elapsed       time.Duration
	resumedAt     time.Time
}

func NewClock(bus *ps.Service) *Clock {
	return &Clock{
		bus:   bus,
		state: StateIdle,
	}
}

func (c *Clock) SetSource(uri string, mimeHint string) {
	c.mu.Lock()
	c.uri = uri
	c.mime = mimeHint
	c.elapsed = 0
	var events []any
	c.setPlayingLocked(false, &events)
	c.setStateLocked(StateIdle, &events)
	c.mu.Unlock()

	c.publish(events)

	slog.Debug("Clock player source set",
		slog.String("uri", uri),
		slog.String("mime", mimeHint),
	)
}

func (c *Clock) Prepare() {
	c.mu.Lock()
	var events []any
	c.setStateLocked(StateBuffering, &events)
	c.setStateLocked(StateReady, &events)
	if c.playWhenReady {
		c.setPlayingLocked(true, &events)
	}
	c.mu.Unlock()

	c.publish(events)
}

func (c *Clock) Play() {
	c.mu.Lock()
	c.playWhenReady = true
	var events []any
	if c.state == StateReady {
		c.setPlayingLocked(true, &events)
	}
	c.mu.Unlock()

	c.publish(events)
}

func (c *Clock) Pause() {
	c.mu.Lock()
	c.playWhenReady = false
	var events []any
	c.setPlayingLocked(false, &events)
	c.mu.Unlock()

	c.publish(events)
}

func (c *Clock) CurrentPosition() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playing {
		return c.elapsed + time.Since(c.resumedAt)
	}

	return c.elapsed
}

// Duration is unknown for a clock source, matching a live stream.
func (c *Clock) Duration() time.Duration {
	return -1
}

func (c *Clock) PlayWhenReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playWhenReady
}

func (c *Clock) PlaybackState() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Clock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playing
}

func (c *Clock) setStateLocked(state State, events *[]any) {
	if c.state == state {
		return
	}

	c.state = state
	*events = append(*events, StateChanged{State: state})
}

func (c *Clock) setPlayingLocked(playing bool, events *[]any) {
	if c.playing == playing {
		return
	}

	if playing {
		c.resumedAt = time.Now()
	} else {
		c.elapsed += time.Since(c.resumedAt)
	}

	c.playing = playing
	*events = append(*events, IsPlayingChanged{IsPlaying: playing})
}

func (c *Clock) publish(events []any) {
	if c.bus == nil {
		return
	}

	for _, event := range events {
		c.bus.Publish(ps.PlayerChannel, event)
	}
}
