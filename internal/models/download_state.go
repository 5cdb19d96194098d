package models

import "strings"

// DownloadState is the lifecycle state of a single video task.
//
//	NotStarted -> Started -> {Finished | Failed | Skipping}
type DownloadState int

const (
	StateNotStarted DownloadState = iota
	StateStarted
	StateFinished
	StateFailed
	StateSkipping
)

// String returns the string representation of the state
func (s DownloadState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarted:
		return "started"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	case StateSkipping:
		return "skipping"
	default:
		return "unknown"
	}
}

// ParseDownloadState converts a state string to DownloadState, defaulting to StateNotStarted
func ParseDownloadState(str string) DownloadState {
	switch strings.ToLower(str) {
	case "started":
		return StateStarted
	case "finished":
		return StateFinished
	case "failed":
		return StateFailed
	case "skipping":
		return StateSkipping
	default:
		return StateNotStarted
	}
}

// IsTerminal reports whether no transition may leave the state.
func (s DownloadState) IsTerminal() bool {
	return s == StateFinished || s == StateFailed || s == StateSkipping
}

// CanTransitionTo reports whether moving from s to next is a legal step.
func (s DownloadState) CanTransitionTo(next DownloadState) bool {
	switch s {
	case StateNotStarted:
		// A task that never got a slot (run aborted) fails without starting.
		return next == StateStarted || next == StateFailed
	case StateStarted:
		return next.IsTerminal()
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler interface
func (s DownloadState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler interface
func (s *DownloadState) UnmarshalJSON(data []byte) error {
	*s = ParseDownloadState(strings.Trim(string(data), `"`))
	return nil
}
