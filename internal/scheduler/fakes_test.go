package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ondemand-tools/ondemand-dl/internal/models"
)

type downloadFunc func(ctx context.Context, index int) (models.DownloadResult, error)

// fakeClient serves a fixed manifest and runs download for every video.
type fakeClient struct {
	manifest    *models.ModuleManifest
	manifestErr error
	download    downloadFunc

	resolveCalls  atomic.Int32
	downloadCalls atomic.Int32
	active        atomic.Int32
	maxActive     atomic.Int32

	mu      sync.Mutex
	started []int
}

func (f *fakeClient) ResolveModule(_ context.Context, moduleID string, _ http.Header) (*models.ModuleManifest, error) {
	f.resolveCalls.Add(1)
	if f.manifestErr != nil {
		return nil, f.manifestErr
	}
	m := *f.manifest
	m.ModuleID = moduleID
	return &m, nil
}

func (f *fakeClient) DownloadVideo(ctx context.Context, url, _ string, _ http.Header, _ []models.Cookie) (models.DownloadResult, error) {
	f.downloadCalls.Add(1)
	var index int
	_, _ = fmt.Sscanf(url, "fake://video/%d", &index)

	f.mu.Lock()
	f.started = append(f.started, index)
	f.mu.Unlock()

	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.maxActive.Load()
		if n <= peak || f.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.download == nil {
		return models.DownloadResult{Outcome: models.OutcomeFinished, Bytes: 10}, nil
	}
	return f.download(ctx, index)
}

func (f *fakeClient) VideoURL(_ string, index int) string {
	return fmt.Sprintf("fake://video/%d", index)
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) startOrder() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.started...)
}

type glyphEvent struct {
	index int
	state models.DownloadState
}

// recordingRenderer keeps every call for assertions.
type recordingRenderer struct {
	mu        sync.Mutex
	sections  []models.SectionContext
	modules   []models.ModuleContext
	glyphs    []glyphEvent
	summaries []models.ModuleSummary
	finished  bool
}

func (r *recordingRenderer) BeginSection(section models.SectionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections = append(r.sections, section)
}

func (r *recordingRenderer) BeginModule(module models.ModuleContext, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = append(r.modules, module)
}

func (r *recordingRenderer) SetGlyph(index int, state models.DownloadState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.glyphs = append(r.glyphs, glyphEvent{index: index, state: state})
}

func (r *recordingRenderer) EndModule(summary models.ModuleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, summary)
}

func (r *recordingRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

// statesOf returns the glyph states reported for one video, in order.
func (r *recordingRenderer) statesOf(index int) []models.DownloadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []models.DownloadState
	for _, g := range r.glyphs {
		if g.index == index {
			states = append(states, g.state)
		}
	}
	return states
}

type staticCredentials struct{}

func (staticCredentials) VideoHeaders(context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("Cookie", "CloudFront-Key-Pair-Id=kp")
	return h, nil
}

func (staticCredentials) ManifestHeaders(context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("X-Access-Token", "t")
	return h, nil
}

func manifestOf(names ...string) *models.ModuleManifest {
	return &models.ModuleManifest{VideoNames: names}
}
