package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// ErrSectionsNotExposed is returned when the client bundle no longer contains the code that
// hands the course sections to the outline view.
var ErrSectionsNotExposed = errors.New("course sections hook not found in client bundle")

// patchTimeout bounds each pattern over a multi-megabyte bundle.
const patchTimeout = 10 * time.Second

var (
	// var <m> = <selector>(), ... <m>.module, ... "No module selected." ...;
	modulePattern = regexp2.MustCompile(`var (\w+?)\s*=\s*\w+?\(\),((?!var).)*?\1\.module,((?!var).)*?"No module selected\.".*?;`, regexp2.Singleline)
	// <x>.sections); ... "course_outline"
	sectionsPattern = regexp2.MustCompile(`((\w+\.sections)\);)(((?!sections).)*"course_outline")`, regexp2.Singleline)
)

func init() {
	modulePattern.MatchTimeout = patchTimeout
	sectionsPattern.MatchTimeout = patchTimeout
}

// PatchClientBundle rewrites the platform's client bundle so the page publishes its course
// state on globalThis: every selected module under sansModules[<id>] and the section list
// rendered by the course outline as sansSections.
func PatchClientBundle(source string) (string, error) {
	patched, err := modulePattern.ReplaceFunc(source, func(m regexp2.Match) string {
		name := m.GroupByNumber(1).String()
		return fmt.Sprintf("%s;globalThis.sansModules = globalThis.sansModules ?? {}; globalThis.sansModules[%s.id] = %s;", m.String(), name, name)
	}, -1, -1)
	if err != nil {
		return "", fmt.Errorf("patch module hook: %w", err)
	}

	found, err := sectionsPattern.MatchString(patched)
	if err != nil {
		return "", fmt.Errorf("find sections hook: %w", err)
	}
	if !found {
		return "", ErrSectionsNotExposed
	}

	patched, err = sectionsPattern.ReplaceFunc(patched, func(m regexp2.Match) string {
		return fmt.Sprintf("%s;globalThis.sansSections=%s;%s",
			m.GroupByNumber(1).String(), m.GroupByNumber(2).String(), m.GroupByNumber(3).String())
	}, -1, -1)
	if err != nil {
		return "", fmt.Errorf("patch sections hook: %w", err)
	}
	return patched, nil
}
