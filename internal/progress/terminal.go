package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
)

// glyphIndent is the width of the prefix in front of the first glyph.
const glyphIndent = 6

type glyph struct {
	char  string
	color lipgloss.Color
}

var glyphs = map[models.DownloadState]glyph{
	models.StateNotStarted: {"-", lipgloss.Color("8")},
	models.StateStarted:    {"o", lipgloss.Color("4")},
	models.StateFinished:   {"^", lipgloss.Color("2")},
	models.StateFailed:     {"x", lipgloss.Color("1")},
	models.StateSkipping:   {"-", lipgloss.Color("3")},
}

// TerminalRenderer draws one glyph per video on a single line and rewrites glyphs in place
// using absolute column addressing, so the line never scrolls while transfers run.
type TerminalRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	debug bool
	total int

	styles  map[models.DownloadState]lipgloss.Style
	failure lipgloss.Style
	success lipgloss.Style
}

// NewTerminalRenderer creates a TerminalRenderer writing to out.
func NewTerminalRenderer(out io.Writer, debug bool) *TerminalRenderer {
	lg := lipgloss.NewRenderer(out)
	styles := make(map[models.DownloadState]lipgloss.Style, len(glyphs))
	for state, g := range glyphs {
		styles[state] = lg.NewStyle().Foreground(g.color)
	}
	return &TerminalRenderer{
		out:     out,
		debug:   debug,
		styles:  styles,
		failure: lg.NewStyle().Foreground(lipgloss.Color("1")),
		success: lg.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

func (r *TerminalRenderer) BeginSection(section models.SectionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "    Section %d...\n", section.Index+1)
}

func (r *TerminalRenderer) BeginModule(module models.ModuleContext, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	fmt.Fprintf(r.out, "      Module %d...\n", module.Index+1)
	line := strings.Repeat(glyphs[models.StateNotStarted].char, total)
	fmt.Fprintf(r.out, "%s%s\x1b[1G", strings.Repeat(" ", glyphIndent), r.styles[models.StateNotStarted].Render(line))
}

// SetGlyph redraws the glyph of the video at index and returns the cursor to column one.
func (r *TerminalRenderer) SetGlyph(index int, state models.DownloadState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= r.total {
		return
	}
	g, ok := glyphs[state]
	if !ok {
		return
	}
	// Columns are 1-based.
	fmt.Fprintf(r.out, "\x1b[%dG%s\x1b[1G", glyphIndent+index+1, r.styles[state].Render(g.char))
}

func (r *TerminalRenderer) EndModule(summary models.ModuleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = 0
	fmt.Fprint(r.out, "\r\n")
	for _, f := range summary.Failures {
		fmt.Fprintln(r.out, r.failure.Render(fmt.Sprintf("      %s: %s", f.Name, f.Message)))
		if !r.debug || f.Detail == "" {
			continue
		}
		// Render pads multi-line text to its widest line.
		for _, detail := range strings.Split(f.Detail, "\n") {
			fmt.Fprintln(r.out, r.failure.Render("      "+detail))
		}
	}

	line := "      " + summary.String()
	if summary.Bytes > 0 {
		line += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(summary.Bytes)))
	}
	fmt.Fprintln(r.out, r.success.Render(line))
}

func (r *TerminalRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Done!")
}
