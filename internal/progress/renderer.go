// Package progress renders the per-video state of the module being downloaded.
package progress

import (
	"io"
	"os"

	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
	"golang.org/x/term"
)

// Renderer receives the lifecycle of a course walk. SetGlyph may be called from several
// goroutines at once; the other methods are called from the walking goroutine only.
type Renderer interface {
	BeginSection(section models.SectionContext)
	BeginModule(module models.ModuleContext, total int)
	SetGlyph(index int, state models.DownloadState)
	EndModule(summary models.ModuleSummary)
	Finish()
}

// New returns a TerminalRenderer when out is a terminal and a LogRenderer otherwise.
func New(out io.Writer, debug bool) Renderer {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return NewTerminalRenderer(out, debug)
	}
	return NewLogRenderer(config.GetLogger(), debug)
}
