package player

import "time"

// State mirrors the playback engine's coarse state machine.
type State int

const (
	StateIdle State = iota
	StateBuffering
	StateReady
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// DiscontinuityReason classifies a position discontinuity notification.
type DiscontinuityReason int

const (
	DiscontinuitySeek DiscontinuityReason = iota
	DiscontinuityAutoTransition
	DiscontinuityOther
)

// Player is the external playback engine. It decodes media, exposes position
// and duration, and accepts a new media source to play. Decoding and
// rendering are outside this module; the engine only swaps sources and reads
// the playhead.
type Player interface {
	SetSource(uri string, mimeHint string)
	Prepare()
	Play()
	Pause()
	CurrentPosition() time.Duration
	Duration() time.Duration
	PlayWhenReady() bool
	PlaybackState() State
	IsPlaying() bool
}

// Notifications published on the pubsub bus.

type StateChanged struct {
	State State
}

type IsPlayingChanged struct {
	IsPlaying bool
}

type PositionDiscontinuity struct {
	Reason DiscontinuityReason
}

type SeekProcessed struct{}

// FormatChanged carries the decoded format after a bitrate/resolution switch.
type FormatChanged struct {
	BitrateKbps int
	Width       int
	Height      int
}

type PlayerError struct {
	Category string
	Code     string
	Message  string
}
