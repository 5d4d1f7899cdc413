package rebuild

import "time"

// Status is the outcome class of one rebuild invocation.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Failure pairs a document with the error that stopped it.
type Failure struct {
	Path string
	Err  error
}

// Result reports what one HandleChange or Build call did.
type Result struct {
	Trigger  string
	Status   Status
	Full     bool
	Built    []string
	Failures []Failure
	Removed  []string
	Duration time.Duration
}

func statusOf(built, failed int) Status {
	switch {
	case failed == 0:
		return StatusSucceeded
	case built == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
