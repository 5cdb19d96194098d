package models

import (
	"fmt"
	"strings"
)

// Failure records one failed video of a module pass.
type Failure struct {
	Name    string
	Message string
	Detail  string // unwrapped error chain, shown in debug mode
}

// ModuleSummary aggregates the terminal states of a module pass.
type ModuleSummary struct {
	Module   ModuleContext
	Total    int
	Finished int
	Failed   int
	Skipped  int
	Bytes    int64
	Failures []Failure
}

// Summarize counts the terminal states of tasks.
func Summarize(module ModuleContext, tasks []*VideoTask, failures []Failure, bytes int64) ModuleSummary {
	summary := ModuleSummary{
		Module:   module,
		Total:    len(tasks),
		Bytes:    bytes,
		Failures: failures,
	}
	for _, task := range tasks {
		switch task.State() {
		case StateFinished:
			summary.Finished++
		case StateFailed:
			summary.Failed++
		case StateSkipping:
			summary.Skipped++
		}
	}
	return summary
}

// String renders the one-line summary printed after every module.
func (s ModuleSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d successfully downloaded", s.Finished, s.Total)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", s.Skipped)
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", s.Failed)
	}
	return b.String()
}
