package domain

import "time"

const (
	OpDelete = "delete"
	OpCreate = "create"
	OpJoin   = "join"
	OpReplay = "replay"
)

const (
	StepOK      = "ok"
	StepSkipped = "skipped"
	StepFailed  = "failed"
)

const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

type RunInfo struct {
	ID              string
	Variant         string
	SourceRole      string
	SourceGame      string
	DestinationRole string
	DestinationGame string
	Kinds           []Kind
	Status          string
	Error           string
	StartedAt       time.Time
	FinishedAt      *time.Time
}

type RunStep struct {
	Kind      Kind
	EntityID  string
	Operation string
	Status    string
	Error     string
	At        time.Time
}

// KindReport counts what a run did to one kind.
type KindReport struct {
	Deleted  int `json:"deleted"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
	Joined   int `json:"joined"`
	Replayed int `json:"replayed"`
}
