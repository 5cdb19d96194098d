package progress

import (
	"github.com/dustin/go-humanize"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
	"github.com/rs/zerolog"
)

// LogRenderer reports progress as structured log events, for output that is not a terminal.
type LogRenderer struct {
	logger zerolog.Logger
	debug  bool
}

// NewLogRenderer creates a LogRenderer.
func NewLogRenderer(logger zerolog.Logger, debug bool) *LogRenderer {
	return &LogRenderer{logger: logger, debug: debug}
}

func (r *LogRenderer) BeginSection(section models.SectionContext) {
	r.logger.Info().Int("section", section.Index+1).Str("name", section.Name).Msg("Section")
}

func (r *LogRenderer) BeginModule(module models.ModuleContext, total int) {
	r.logger.Info().
		Int("section", module.Section.Index+1).
		Int("module", module.Index+1).
		Str("name", module.Name).
		Int("videos", total).
		Msg("Module")
}

func (r *LogRenderer) SetGlyph(index int, state models.DownloadState) {
	r.logger.Debug().Int("video", index+1).Stringer("state", state).Msg("Video state")
}

func (r *LogRenderer) EndModule(summary models.ModuleSummary) {
	for _, f := range summary.Failures {
		event := r.logger.Error().Str("video", f.Name).Str("error", f.Message)
		if r.debug && f.Detail != "" {
			event = event.Str("detail", f.Detail)
		}
		event.Msg("Video failed")
	}
	r.logger.Info().
		Int("module", summary.Module.Index+1).
		Int("finished", summary.Finished).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("total", summary.Total).
		Str("size", humanize.Bytes(uint64(summary.Bytes))).
		Msg(summary.String())
}

func (r *LogRenderer) Finish() {
	r.logger.Info().Msg("Done!")
}
