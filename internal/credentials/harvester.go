package credentials

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
)

// Interception rule constants for the platform's traffic.
const (
	// ReplayMarkerHeader is attached to the harvester's own bundle fetch so the replayed
	// request is let through instead of being patched again.
	ReplayMarkerHeader = "brenny"
	ReplayMarkerValue  = "hello"

	videoSegmentMarker = ".webm"
	cdnCookieMarker    = "CloudFront"
	manifestURLMarker  = "/api/graphq"
	accessTokenHeader  = "X-Access-Token"
)

var bundlePattern = regexp.MustCompile(`main\..{8}\.js`)

// IsVideoSegment reports whether url is a video segment request, the only kind whose
// cookies are inspected.
func IsVideoSegment(url string) bool {
	return strings.Contains(url, videoSegmentMarker)
}

// InterceptedRequest is a browser request paused before it is sent. Exactly one of
// Continue or Respond must be called for every request.
type InterceptedRequest interface {
	URL() string
	Header() http.Header
	Continue() error
	Respond(status int, contentType string, body []byte) error
}

// BundleFetcher loads the original client bundle at url with the browser's request headers
// plus the replay marker.
type BundleFetcher func(ctx context.Context, url string, header http.Header) (string, error)

// BundlePatcher rewrites the client bundle so the page exposes its course tree.
type BundlePatcher func(source string) (string, error)

// Harvester watches browser traffic and captures the two credential header sets.
type Harvester struct {
	fetchBundle BundleFetcher
	patchBundle BundlePatcher

	video    *Deferred[http.Header]
	manifest *Deferred[http.Header]
	patched  *Deferred[string]
}

// NewHarvester creates a Harvester that serves patched bundles using fetch and patch.
func NewHarvester(fetch BundleFetcher, patch BundlePatcher) *Harvester {
	return &Harvester{
		fetchBundle: fetch,
		patchBundle: patch,
		video:       NewDeferred[http.Header](),
		manifest:    NewDeferred[http.Header](),
		patched:     NewDeferred[string](),
	}
}

// Handle applies the interception rules to req and resolves it. An error means the
// request could not be resolved and the browser's network layer is stalled.
func (h *Harvester) Handle(ctx context.Context, req InterceptedRequest) error {
	url := req.URL()
	header := req.Header()

	if bundle := bundlePattern.FindString(url); bundle != "" && header.Get(ReplayMarkerHeader) != ReplayMarkerValue {
		err := h.serveBundle(ctx, req, bundle)
		if err == nil {
			return nil
		}
		logger := config.GetLogger()
		logger.Warn().Err(err).Str("bundle", bundle).Msg("Failed to patch client bundle, letting original through")
	} else {
		h.capture(url, header)
	}

	if err := req.Continue(); err != nil {
		return &apperrors.InterceptionError{URL: url, Err: err}
	}
	return nil
}

func (h *Harvester) serveBundle(ctx context.Context, req InterceptedRequest, bundle string) error {
	logger := config.GetLogger()
	logger.Debug().Str("bundle", bundle).Msg("Patching client bundle")

	header := req.Header().Clone()
	header.Set(ReplayMarkerHeader, ReplayMarkerValue)
	source, err := h.fetchBundle(ctx, req.URL(), header)
	if err != nil {
		return fmt.Errorf("fetch bundle: %w", err)
	}
	patched, err := h.patchBundle(source)
	if err != nil {
		return fmt.Errorf("patch bundle: %w", err)
	}
	if err := req.Respond(http.StatusOK, "text/javascript", []byte(patched)); err != nil {
		return &apperrors.InterceptionError{URL: req.URL(), Err: err}
	}
	h.patched.Resolve(bundle)
	return nil
}

func (h *Harvester) capture(url string, header http.Header) {
	logger := config.GetLogger()

	switch {
	case IsVideoSegment(url) && strings.Contains(header.Get("Cookie"), cdnCookieMarker):
		if h.video.Resolve(header.Clone()) {
			logger.Debug().Str("url", url).Msg("Collected video headers")
		}
	case strings.Contains(url, manifestURLMarker) && header.Get(accessTokenHeader) != "":
		if h.manifest.Resolve(header.Clone()) {
			logger.Debug().Str("url", url).Msg("Collected manifest headers")
		}
	}
}

// VideoHeaders waits for the header set captured from the first authorized video segment request.
func (h *Harvester) VideoHeaders(ctx context.Context) (http.Header, error) {
	header, err := h.video.Await(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for video credentials: %w", err)
	}
	return header.Clone(), nil
}

// ManifestHeaders waits for the header set captured from the first authorized manifest API request.
func (h *Harvester) ManifestHeaders(ctx context.Context) (http.Header, error) {
	header, err := h.manifest.Await(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for manifest credentials: %w", err)
	}
	return header.Clone(), nil
}

// BundlePatched waits until a patched client bundle has been served to the page and returns its name.
func (h *Harvester) BundlePatched(ctx context.Context) (string, error) {
	return h.patched.Await(ctx)
}
