package dto

// SinkEvent is the lifecycle event payload POSTed to the event sink.
type SinkEvent struct {
	Event     EventType      `json:"event"`
	SessionID string         `json:"sessionId"`
	Timestamp int64          `json:"timestamp"`
	Playhead  int64          `json:"playhead"`
	Duration  int64          `json:"duration"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// AdTrackingEvent is POSTed to track/ad.
type AdTrackingEvent struct {
	SessionID        string         `json:"sessionId"`
	EventType        string         `json:"eventType"`
	AdID             string         `json:"adId"`
	Timestamp        int64          `json:"timestamp"`
	PlaybackPosition int64          `json:"playbackPosition"`
	AdditionalData   map[string]any `json:"additionalData,omitempty"`
}

// AdBreakTrackingEvent is POSTed to track/adbreak.
type AdBreakTrackingEvent struct {
	SessionID string `json:"sessionId"`
	EventType string `json:"eventType"`
	AdBreakID string `json:"adBreakId"`
	Timestamp int64  `json:"timestamp"`
}
