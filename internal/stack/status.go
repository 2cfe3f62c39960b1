// File: internal/stack/status.go
// Brief: Stack status vocabulary helpers.

package stack

import "strings"

// UnknownStatus stands in when a describe call returns no stack record.
const UnknownStatus = "Unknown status"

const progressSuffix = "PROGRESS"

// IsTerminal reports whether polling should stop at status. Only values
// ending in PROGRESS are in flight.
func IsTerminal(status string) bool {
	return !strings.HasSuffix(status, progressSuffix)
}

// Outcome labels a terminal status for display.
type Outcome string

const (
	OutcomeInFlight   Outcome = "in-flight"
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeRolledBack Outcome = "rolled-back"
	OutcomeFailed     Outcome = "failed"
	OutcomeUnknown    Outcome = "unknown"
)

// Classify maps a status onto an Outcome. Nothing in the engine branches on it.
func Classify(status string) Outcome {
	switch {
	case !IsTerminal(status):
		return OutcomeInFlight
	case strings.HasSuffix(status, "_FAILED"):
		return OutcomeFailed
	case strings.Contains(status, "ROLLBACK") && strings.HasSuffix(status, "_COMPLETE"):
		return OutcomeRolledBack
	case strings.HasSuffix(status, "_COMPLETE"):
		return OutcomeSucceeded
	default:
		return OutcomeUnknown
	}
}
