package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/credentials"
	"golang.org/x/net/html/charset"
)

// NewBundleFetcher returns a fetcher that loads the client bundle outside the browser with
// the browser's own request headers, decoding the body to UTF-8.
func NewBundleFetcher(httpClient *http.Client) credentials.BundleFetcher {
	return func(ctx context.Context, url string, header http.Header) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("build bundle request: %w", err)
		}
		for name, values := range header {
			// Pseudo headers and transfer settings belong to the browser's connection
			if strings.HasPrefix(name, ":") {
				continue
			}
			switch http.CanonicalHeaderKey(name) {
			case "Accept-Encoding", "Content-Length", "Host", "Connection":
				continue
			}
			req.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch bundle: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", &apperrors.TransferHTTPError{URL: url, StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
		}

		reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
		if err != nil {
			return "", fmt.Errorf("decode bundle: %w", err)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("read bundle: %w", err)
		}
		return string(body), nil
	}
}
