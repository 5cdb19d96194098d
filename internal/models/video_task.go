package models

import "fmt"

// Outcome is the non-error result of the per-item download operation.
type Outcome int

const (
	OutcomeFinished Outcome = iota
	OutcomeSkipped
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}
	return "finished"
}

// DownloadResult is what a successful per-item download reports back.
type DownloadResult struct {
	Outcome Outcome
	Bytes   int64 // bytes written to disk, 0 when skipped
}

// VideoTask is one video of the module currently downloading. Its state is written only
// by the goroutine that owns the task.
type VideoTask struct {
	SectionIndex int
	ModuleIndex  int
	VideoIndex   int
	Name         string
	Destination  string
	URL          string

	state DownloadState
}

// NewVideoTask creates a task in StateNotStarted.
func NewVideoTask(section, module, video int, name, destination, url string) *VideoTask {
	return &VideoTask{
		SectionIndex: section,
		ModuleIndex:  module,
		VideoIndex:   video,
		Name:         name,
		Destination:  destination,
		URL:          url,
		state:        StateNotStarted,
	}
}

// State returns the current state.
func (t *VideoTask) State() DownloadState {
	return t.state
}

// Transition moves the task to next, refusing illegal steps and any step out of a
// terminal state.
func (t *VideoTask) Transition(next DownloadState) error {
	if !t.state.CanTransitionTo(next) {
		return fmt.Errorf("video %d (%s): illegal transition %s -> %s", t.VideoIndex, t.Name, t.state, next)
	}
	t.state = next
	return nil
}
