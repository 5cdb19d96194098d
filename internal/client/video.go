package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/metrics"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
)

var droppedVideoHeaders = map[string]bool{
	"Range":           true,
	"Accept-Encoding": true,
	"Cookie":          true,
}

func (c *client) DownloadVideo(ctx context.Context, url, dest string, credentials http.Header, overrides []models.Cookie) (models.DownloadResult, error) {
	logger := config.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.DownloadResult{}, fmt.Errorf("build video request: %w", err)
	}
	req.Header = videoRequestHeader(credentials, overrides)

	resp, err := c.videoHTTP.Do(req)
	if err != nil {
		return models.DownloadResult{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	// Closing an unread body aborts the transfer on the skip path
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.DownloadResult{}, &apperrors.TransferHTTPError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	info, err := c.fs.Stat(dest)
	switch {
	case err == nil:
		if info.Size() == resp.ContentLength {
			logger.Debug().Str("dest", dest).Int64("size", info.Size()).Msg("Video already present, skipping")
			return models.DownloadResult{Outcome: models.OutcomeSkipped}, nil
		}
		logger.Debug().
			Str("dest", dest).
			Int64("local", info.Size()).
			Int64("remote", resp.ContentLength).
			Msg("Replacing stale video")
		if err := c.fs.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return models.DownloadResult{}, &apperrors.FilesystemError{Op: "remove", Path: dest, Err: err}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return models.DownloadResult{}, &apperrors.FilesystemError{Op: "stat", Path: dest, Err: err}
	}

	written, err := c.writeBody(dest, resp.Body)
	if err != nil {
		return models.DownloadResult{}, err
	}
	return models.DownloadResult{Outcome: models.OutcomeFinished, Bytes: written}, nil
}

func (c *client) writeBody(dest string, body io.Reader) (int64, error) {
	metrics.ActiveTransfers.Inc()
	defer metrics.ActiveTransfers.Dec()

	file, err := c.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", dest, err)
	}

	written, copyErr := io.Copy(file, body)
	metrics.DownloadedBytesTotal.Add(float64(written))
	closeErr := file.Close()
	if copyErr != nil {
		return written, fmt.Errorf("stream to %s: %w", dest, copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("close %s: %w", dest, closeErr)
	}
	return written, nil
}

// videoRequestHeader copies the captured video headers, dropping the ones that would turn
// the GET into a partial or compressed fetch, and sets the merged cookie line.
func videoRequestHeader(credentials http.Header, overrides []models.Cookie) http.Header {
	header := make(http.Header, len(credentials))
	for name, values := range credentials {
		canonical := http.CanonicalHeaderKey(name)
		if strings.HasPrefix(name, ":") || droppedVideoHeaders[canonical] {
			continue
		}
		header[canonical] = append([]string(nil), values...)
	}
	if cookie := mergeCookies(credentials.Values("Cookie"), overrides); cookie != "" {
		header.Set("Cookie", cookie)
	}
	return header
}

// mergeCookies folds overrides into the captured cookie lines. Captured order is kept,
// overridden keys keep their position and new keys are appended in override order.
func mergeCookies(lines []string, overrides []models.Cookie) string {
	var keys []string
	values := make(map[string]string)
	set := func(key, value string) {
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = value
	}

	for _, line := range lines {
		for _, pair := range strings.Split(line, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, value, _ := strings.Cut(pair, "=")
			set(strings.TrimSpace(key), value)
		}
	}
	for _, cookie := range overrides {
		set(cookie.Key, cookie.Value)
	}

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+values[key])
	}
	return strings.Join(pairs, "; ")
}
