package dto

// EventType is the canonical analytics event taxonomy. Playback lifecycle
// events come from the player state machine, ad_* events from the splicer.
type EventType string

const (
	EventInit           EventType = "init"
	EventMetadata       EventType = "metadata"
	EventHeartbeat      EventType = "heartbeat"
	EventLoading        EventType = "loading"
	EventLoaded         EventType = "loaded"
	EventPlaying        EventType = "playing"
	EventPaused         EventType = "paused"
	EventBuffering      EventType = "buffering"
	EventBuffered       EventType = "buffered"
	EventSeeking        EventType = "seeking"
	EventSeeked         EventType = "seeked"
	EventBitrateChanged EventType = "bitrate_changed"
	EventStopped        EventType = "stopped"
	EventError          EventType = "error"

	EventAdBreakStart    EventType = "ad_break_start"
	EventAdBreakEnd      EventType = "ad_break_end"
	EventAdStart         EventType = "ad_start"
	EventAdFirstQuartile EventType = "ad_first_quartile"
	EventAdMidpoint      EventType = "ad_midpoint"
	EventAdThirdQuartile EventType = "ad_third_quartile"
	EventAdComplete      EventType = "ad_complete"
	EventAdPause         EventType = "ad_pause"
	EventAdResume        EventType = "ad_resume"
	EventAdError         EventType = "ad_error"
)

var knownEventTypes = map[EventType]struct{}{
	EventInit: {}, EventMetadata: {}, EventHeartbeat: {}, EventLoading: {},
	EventLoaded: {}, EventPlaying: {}, EventPaused: {}, EventBuffering: {},
	EventBuffered: {}, EventSeeking: {}, EventSeeked: {}, EventBitrateChanged: {},
	EventStopped: {}, EventError: {},
	EventAdBreakStart: {}, EventAdBreakEnd: {}, EventAdStart: {},
	EventAdFirstQuartile: {}, EventAdMidpoint: {}, EventAdThirdQuartile: {},
	EventAdComplete: {}, EventAdPause: {}, EventAdResume: {}, EventAdError: {},
}

// Known reports whether name is part of the taxonomy. Unknown names are
// dropped by the tracker instead of reaching the sink.
func (e EventType) Known() bool {
	_, ok := knownEventTypes[e]
	return ok
}

// PlayerMode tells the poller whether cue detection is currently allowed.
type PlayerMode string

const (
	ModeMainContent PlayerMode = "main_content"
	ModeAdBreak     PlayerMode = "ad_break"
)

// SessionID identifies one engine instance; attached to every emitted event.
type SessionID string
