// Package scheduler walks a course and downloads every module's videos with bounded
// concurrency.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/client"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/metrics"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
	"github.com/ondemand-tools/ondemand-dl/internal/paths"
	"github.com/ondemand-tools/ondemand-dl/internal/progress"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CredentialSource hands out the captured header sets, blocking until they exist.
type CredentialSource interface {
	VideoHeaders(ctx context.Context) (http.Header, error)
	ManifestHeaders(ctx context.Context) (http.Header, error)
}

// Options holds the validated run settings the scheduler needs.
type Options struct {
	Concurrency  int
	Flatten      bool
	Output       string
	Extension    string
	PathMemoSize int
}

// OptionsFromConfig extracts Options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Concurrency:  cfg.Concurrency,
		Flatten:      cfg.Flatten,
		Output:       cfg.Output,
		Extension:    cfg.Video.Extension,
		PathMemoSize: cfg.PathMemoSize,
	}
}

// Scheduler drives the download pass of a course.
type Scheduler struct {
	client   client.Client
	fs       afero.Fs
	renderer progress.Renderer
	opts     Options
}

// New creates a Scheduler. Concurrency below one is treated as one.
func New(c client.Client, fs afero.Fs, renderer progress.Renderer, opts Options) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.PathMemoSize < 1 {
		opts.PathMemoSize = config.DefaultPathMemoSize
	}
	if opts.Extension == "" {
		opts.Extension = config.DefaultVideoExtension
	}
	return &Scheduler{client: c, fs: fs, renderer: renderer, opts: opts}
}

// RunCourse downloads every module of course, one module at a time. It waits for both
// credential sets before the first manifest query and stops at the first module-level
// error: a manifest failure, a fatal filesystem error or cancellation.
func (s *Scheduler) RunCourse(ctx context.Context, course *models.CourseTree, creds CredentialSource) ([]models.ModuleSummary, error) {
	logger := config.GetLogger()

	deriver, err := paths.NewDeriver(s.opts.Flatten, s.opts.Output, course.Name, s.opts.PathMemoSize)
	if err != nil {
		return nil, err
	}

	root := deriver.Course()
	if s.opts.Flatten {
		root = s.opts.Output
	}
	if err := s.mkdir(root); err != nil {
		return nil, err
	}

	logger.Debug().Msg("Waiting for video credentials")
	videoHeaders, err := creds.VideoHeaders(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug().Msg("Waiting for manifest credentials")
	manifestHeaders, err := creds.ManifestHeaders(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("course", course.Name).
		Int("sections", len(course.Sections)).
		Int("modules", course.ModuleCount()).
		Msg("Starting download")

	summaries := make([]models.ModuleSummary, 0, course.ModuleCount())
	for si, section := range course.Sections {
		sectionCtx := models.SectionContext{Index: si, Name: section.Name}
		s.renderer.BeginSection(sectionCtx)
		if !s.opts.Flatten {
			if err := s.mkdir(deriver.Derive(paths.At(si, section.Name), paths.None, paths.None)); err != nil {
				return summaries, err
			}
		}

		for mi, module := range section.Modules {
			moduleCtx := models.ModuleContext{Section: sectionCtx, Index: mi, ID: module.ID, Name: module.Name}
			if !s.opts.Flatten {
				dir := deriver.Derive(paths.At(si, section.Name), paths.At(mi, module.Name), paths.None)
				if err := s.mkdir(dir); err != nil {
					return summaries, err
				}
			}

			summary, err := s.RunModule(ctx, deriver, moduleCtx, manifestHeaders, videoHeaders)
			if err != nil {
				return summaries, fmt.Errorf("section %d module %d: %w", si+1, mi+1, err)
			}
			summaries = append(summaries, summary)
		}
	}

	s.renderer.Finish()
	return summaries, nil
}

// RunModule resolves a module's manifest and downloads its videos. Per-video failures are
// recorded in the summary; only manifest errors, fatal filesystem errors and cancellation
// are returned.
func (s *Scheduler) RunModule(ctx context.Context, deriver *paths.Deriver, module models.ModuleContext, manifestHeaders, videoHeaders http.Header) (models.ModuleSummary, error) {
	logger := config.GetLogger().With().
		Int("section", module.Section.Index+1).
		Int("module", module.Index+1).
		Str("module_id", module.ID).
		Logger()

	manifest, err := s.client.ResolveModule(ctx, module.ID, manifestHeaders)
	if err != nil {
		return models.ModuleSummary{Module: module}, err
	}

	tasks := s.buildTasks(deriver, module, manifest)
	s.renderer.BeginModule(module, len(tasks))

	var (
		mu       sync.Mutex
		failures []models.Failure
		written  atomic.Int64
	)
	recordFailure := func(task *models.VideoTask, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, models.Failure{Name: task.Name, Message: err.Error(), Detail: errorDetail(err)})
	}

	sem := semaphore.NewWeighted(int64(s.opts.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	dispatched := 0
	for _, task := range tasks {
		// Slots are granted in submission order.
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		dispatched++
		s.transition(task, models.StateStarted)

		g.Go(func() error {
			defer sem.Release(1)

			result, err := s.client.DownloadVideo(gctx, task.URL, task.Destination, videoHeaders, manifest.Cookies)
			if err != nil {
				logger.Debug().Err(err).Str("video", task.Name).Msg("Video failed")
				recordFailure(task, err)
				s.transition(task, models.StateFailed)
				if apperrors.IsFatal(err) {
					return err
				}
				return nil
			}

			written.Add(result.Bytes)
			if result.Outcome == models.OutcomeSkipped {
				s.transition(task, models.StateSkipping)
			} else {
				s.transition(task, models.StateFinished)
			}
			return nil
		})
	}
	waitErr := g.Wait()

	// Tasks that never got a slot still end in a terminal state.
	for _, task := range tasks[dispatched:] {
		cause := context.Cause(gctx)
		if cause == nil {
			cause = context.Canceled
		}
		recordFailure(task, fmt.Errorf("not started: %w", cause))
		s.transition(task, models.StateFailed)
	}

	summary := models.Summarize(module, tasks, failures, written.Load())
	s.renderer.EndModule(summary)

	if waitErr != nil {
		return summary, waitErr
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Scheduler) buildTasks(deriver *paths.Deriver, module models.ModuleContext, manifest *models.ModuleManifest) []*models.VideoTask {
	section := paths.At(module.Section.Index, module.Section.Name)
	mod := paths.At(module.Index, module.Name)

	tasks := make([]*models.VideoTask, 0, len(manifest.VideoNames))
	for vi, name := range manifest.VideoNames {
		if paths.SanitizeVideoName(name) == "" {
			name = fmt.Sprintf("%03d", vi+1)
		}
		dest := deriver.Derive(section, mod, paths.At(vi, name)) + "." + s.opts.Extension
		tasks = append(tasks, models.NewVideoTask(module.Section.Index, module.Index, vi, name, dest, s.client.VideoURL(module.ID, vi)))
	}
	return tasks
}

func (s *Scheduler) transition(task *models.VideoTask, next models.DownloadState) {
	if err := task.Transition(next); err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Msg("Rejected video state change")
		return
	}
	if next.IsTerminal() {
		metrics.VideoDownloadsTotal.WithLabelValues(next.String()).Inc()
	}
	s.renderer.SetGlyph(task.VideoIndex, next)
}

func (s *Scheduler) mkdir(dir string) error {
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return &apperrors.FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// errorDetail lists the wrapped error chain, outermost first.
func errorDetail(err error) string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, fmt.Sprintf("%T: %v", e, e))
	}
	return strings.Join(lines, "\n")
}
