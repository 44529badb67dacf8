package models

import "time"

// Pipeline event types.
const (
	EventStageStarted   = "stage_started"
	EventStageProgress  = "stage_progress"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"
)

// StageEvent reports the progress of a pipeline stage.
type StageEvent struct {
	Type     string           `json:"type"`
	RunID    string           `json:"run_id"`
	Stage    string           `json:"stage"`
	Counters map[string]int64 `json:"counters,omitempty"`
	Fraction float64          `json:"fraction,omitempty"`
	Error    string           `json:"error,omitempty"`
	Time     time.Time        `json:"time"`
}
