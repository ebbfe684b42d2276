// Package queue defines message payloads exchanged over the message broker.
package queue

// UsageRecordedEvent is published after a usage event is persisted. It
// carries enough information for downstream consumers to log or feed
// analytics without querying the primary database. ResponseTimeMS is nil
// when the request recorded no latency.
type UsageRecordedEvent struct {
	UsageID        uint64   `json:"usage_id"`
	UserID         uint64   `json:"user_id"`
	Endpoint       string   `json:"endpoint"`
	Method         string   `json:"method"`
	StatusCode     int      `json:"status_code"`
	ResponseTimeMS *float64 `json:"response_time_ms,omitempty"`
	RecordedAt     string   `json:"recorded_at"`
}
