package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
	"github.com/spf13/afero"
)

// Client defines the interface for talking to the platform outside the browser
type Client interface {
	// ResolveModule queries the manifest API for a module's video names and cookies.
	ResolveModule(ctx context.Context, moduleID string, headers http.Header) (*models.ModuleManifest, error)

	// DownloadVideo fetches url into dest. An existing file whose size matches the
	// remote content length is left alone and reported as skipped.
	DownloadVideo(ctx context.Context, url, dest string, credentials http.Header, overrides []models.Cookie) (models.DownloadResult, error)

	// VideoURL returns the CDN location of the video at the 0-based index of a module.
	VideoURL(moduleID string, index int) string

	// Close releases idle connections held by the client.
	Close() error
}

// client implements the Client interface
type client struct {
	manifestHTTP *http.Client
	videoHTTP    *http.Client
	fs           afero.Fs

	endpoint    string
	contentHost string
	extension   string
	quality     string
	timeout     time.Duration
}

// NewClient creates a new client writing videos through fs
func NewClient(cfg *config.Config, fs afero.Fs) Client {
	timeout := cfg.Timeout()

	// Clone DefaultTransport to preserve its pooling, proxy and HTTP/2 settings
	manifestTransport := http.DefaultTransport.(*http.Transport).Clone()

	// Video bodies are written as-is, so the transport must not negotiate gzip behind our back
	// and must leave Content-Length untouched for the size comparison.
	videoTransport := http.DefaultTransport.(*http.Transport).Clone()
	videoTransport.DisableCompression = true
	videoTransport.ResponseHeaderTimeout = timeout

	logger := config.GetLogger()
	logger.Debug().
		Str("endpoint", cfg.OnDemand.GraphQLEndpoint).
		Str("content_host", cfg.OnDemand.ContentHost).
		Dur("timeout", timeout).
		Msg("Creating platform client")

	return &client{
		// The manifest call is bounded by a failsafe timeout policy instead of Client.Timeout
		manifestHTTP: &http.Client{Transport: newDecompressingTransport(manifestTransport)},
		// No overall timeout: a transfer may legitimately outlast any fixed ceiling
		videoHTTP:   &http.Client{Transport: videoTransport},
		fs:          fs,
		endpoint:    cfg.OnDemand.GraphQLEndpoint,
		contentHost: strings.TrimRight(cfg.OnDemand.ContentHost, "/"),
		extension:   cfg.Video.Extension,
		quality:     cfg.Video.Quality,
		timeout:     timeout,
	}
}

func (c *client) VideoURL(moduleID string, index int) string {
	return fmt.Sprintf("%s/%s/video/%03d-720.%s", c.contentHost, moduleID, index+1, c.extension)
}

// Close releases idle connections held by both HTTP clients.
func (c *client) Close() error {
	c.manifestHTTP.CloseIdleConnections()
	c.videoHTTP.CloseIdleConnections()
	return nil
}
