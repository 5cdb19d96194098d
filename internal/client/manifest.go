package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/metrics"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
	"github.com/tidwall/gjson"
)

const moduleQuery = "query ModuleQuery($moduleId: String!, $quality: String!, $mp4: Boolean!) { module(moduleId: $moduleId) { id baseUrl cookies { key value } slides { name id videoPath(quality: $quality, mp4: $mp4) } } } "

// Headers the browser sent that must not be replayed on our own connection.
var droppedManifestHeaders = map[string]bool{
	"Content-Length":  true,
	"Host":            true,
	"Connection":      true,
	"Accept-Encoding": true,
}

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

func (c *client) ResolveModule(ctx context.Context, moduleID string, headers http.Header) (*models.ModuleManifest, error) {
	logger := config.GetLogger()
	logger.Debug().Str("module", moduleID).Msg("Resolving module manifest")

	body, err := json.Marshal(graphQLRequest{
		OperationName: "ModuleQuery",
		Variables: map[string]any{
			"moduleId": moduleID,
			"quality":  c.quality,
			"mp4":      c.extension == "mp4",
		},
		Query: moduleQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("encode manifest query: %w", err)
	}

	executor := failsafe.NewExecutor[[]byte](timeout.With[[]byte](c.timeout))
	payload, err := executor.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[[]byte]) ([]byte, error) {
		return c.postManifest(exec.Context(), moduleID, headers, body)
	})
	if err != nil {
		metrics.ManifestRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	manifest, err := parseManifest(moduleID, payload)
	if err != nil {
		metrics.ManifestRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ManifestRequestsTotal.WithLabelValues("success").Inc()

	logger.Debug().
		Str("module", moduleID).
		Int("videos", len(manifest.VideoNames)).
		Int("cookies", len(manifest.Cookies)).
		Msg("Resolved module manifest")
	return manifest, nil
}

func (c *client) postManifest(ctx context.Context, moduleID string, headers http.Header, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}
	req.Header = manifestRequestHeader(headers)

	resp, err := c.manifestHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest query for module %s: %w", moduleID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apperrors.ManifestFetchError{
			ModuleID:   moduleID,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read manifest for module %s: %w", moduleID, err)
	}
	return payload, nil
}

func manifestRequestHeader(captured http.Header) http.Header {
	header := make(http.Header, len(captured)+1)
	for name, values := range captured {
		if strings.HasPrefix(name, ":") || droppedManifestHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	return header
}

func parseManifest(moduleID string, payload []byte) (*models.ModuleManifest, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("manifest for module %s is not valid JSON", moduleID)
	}

	module := gjson.GetBytes(payload, "data.module")
	if !module.IsObject() {
		if msg := gjson.GetBytes(payload, "errors.0.message"); msg.Exists() {
			return nil, fmt.Errorf("%w: %s", apperrors.NewNotFoundError("module", moduleID), msg.String())
		}
		return nil, apperrors.NewNotFoundError("module", moduleID)
	}

	manifest := &models.ModuleManifest{ModuleID: moduleID}
	module.Get("cookies").ForEach(func(_, cookie gjson.Result) bool {
		manifest.Cookies = append(manifest.Cookies, models.Cookie{
			Key:   cookie.Get("key").String(),
			Value: cookie.Get("value").String(),
		})
		return true
	})
	for _, name := range module.Get("slides.#.name").Array() {
		manifest.VideoNames = append(manifest.VideoNames, name.String())
	}
	return manifest, nil
}
