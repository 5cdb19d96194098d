package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/testutil"
	"github.com/spf13/afero"
)

func capturedManifestHeaders() http.Header {
	h := http.Header{}
	h.Set("X-Access-Token", "token-123")
	h.Set("Accept-Encoding", "identity")
	h.Set("Content-Length", "999")
	h.Set("Host", "ondemand.example")
	h[":authority"] = []string{"ondemand.example"}
	return h
}

func TestResolveModule_Success(t *testing.T) {
	type captured struct {
		body   graphQLRequest
		header http.Header
	}
	requests := make(chan captured, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var body graphQLRequest
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("Request body is not JSON: %v", err)
		}
		requests <- captured{body: body, header: r.Header.Clone()}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testutil.GenerateManifestJSON(testutil.ManifestOptions{
			ModuleID: "mod-1",
			Cookies:  [][2]string{{"CloudFront-Policy", "p"}, {"CloudFront-Signature", "s"}},
			Slides:   testutil.SlideNames("Intro", "Lab: Setup"),
		})))
	}))
	defer server.Close()

	c := NewClient(newTestConfig(server.URL, ""), afero.NewMemMapFs())
	manifest, err := c.ResolveModule(context.Background(), "mod-1", capturedManifestHeaders())
	if err != nil {
		t.Fatalf("ResolveModule failed: %v", err)
	}

	if manifest.ModuleID != "mod-1" {
		t.Errorf("Expected module id mod-1, got %q", manifest.ModuleID)
	}
	if len(manifest.VideoNames) != 2 || manifest.VideoNames[0] != "Intro" || manifest.VideoNames[1] != "Lab: Setup" {
		t.Errorf("Unexpected video names %v", manifest.VideoNames)
	}
	if len(manifest.Cookies) != 2 || manifest.Cookies[1].Key != "CloudFront-Signature" || manifest.Cookies[1].Value != "s" {
		t.Errorf("Unexpected cookies %+v", manifest.Cookies)
	}

	req := <-requests
	gotBody, gotHeader := req.body, req.header
	if gotBody.OperationName != "ModuleQuery" {
		t.Errorf("Expected operationName ModuleQuery, got %q", gotBody.OperationName)
	}
	if gotBody.Variables["moduleId"] != "mod-1" || gotBody.Variables["quality"] != "HD" || gotBody.Variables["mp4"] != true {
		t.Errorf("Unexpected variables %v", gotBody.Variables)
	}
	if gotBody.Query != moduleQuery {
		t.Errorf("Unexpected query %q", gotBody.Query)
	}

	if gotHeader.Get("X-Access-Token") != "token-123" {
		t.Errorf("Expected access token to be forwarded, got %q", gotHeader.Get("X-Access-Token"))
	}
	if gotHeader.Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotHeader.Get("Content-Type"))
	}
	if gotHeader.Get("Accept-Encoding") != acceptedEncodings {
		t.Errorf("Expected Accept-Encoding %q, got %q", acceptedEncodings, gotHeader.Get("Accept-Encoding"))
	}
}

func TestResolveModule_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(newTestConfig(server.URL, ""), afero.NewMemMapFs())
	manifest, err := c.ResolveModule(context.Background(), "mod-500", capturedManifestHeaders())
	if manifest != nil {
		t.Errorf("Expected no manifest, got %+v", manifest)
	}

	var fetchErr *apperrors.ManifestFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected ManifestFetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusInternalServerError || fetchErr.ModuleID != "mod-500" {
		t.Errorf("Unexpected error fields %+v", fetchErr)
	}
}

func TestResolveModule_MissingModule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"module":null},"errors":[{"message":"Module not found"}]}`))
	}))
	defer server.Close()

	c := NewClient(newTestConfig(server.URL, ""), afero.NewMemMapFs())
	_, err := c.ResolveModule(context.Background(), "gone", capturedManifestHeaders())
	if !errors.Is(err, &apperrors.ErrNotFound{}) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResolveModule_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	c := NewClient(newTestConfig(server.URL, ""), afero.NewMemMapFs())
	if _, err := c.ResolveModule(context.Background(), "m", capturedManifestHeaders()); err == nil {
		t.Error("Expected an error for a non-JSON body")
	}
}

func TestResolveModule_GzipResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(testutil.GenerateManifestJSON(testutil.ManifestOptions{
			ModuleID: "mod-gz",
			Slides:   testutil.SlideNames("Compressed"),
		})))
		_ = gz.Close()
	}))
	defer server.Close()

	c := NewClient(newTestConfig(server.URL, ""), afero.NewMemMapFs())
	manifest, err := c.ResolveModule(context.Background(), "mod-gz", capturedManifestHeaders())
	if err != nil {
		t.Fatalf("ResolveModule failed: %v", err)
	}
	if len(manifest.VideoNames) != 1 || manifest.VideoNames[0] != "Compressed" {
		t.Errorf("Unexpected video names %v", manifest.VideoNames)
	}
}

func TestResolveModule_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(newTestConfig(server.URL, ""), afero.NewMemMapFs())
	if _, err := c.ResolveModule(ctx, "m", capturedManifestHeaders()); err == nil {
		t.Error("Expected an error for a canceled context")
	}
}

func TestManifestRequestHeader(t *testing.T) {
	captured := capturedManifestHeaders()
	captured.Set("Content-Type", "application/graphql+json")

	header := manifestRequestHeader(captured)

	for _, dropped := range []string{"Content-Length", "Host", "Accept-Encoding", ":authority"} {
		if _, ok := header[dropped]; ok {
			t.Errorf("Expected %s to be dropped", dropped)
		}
	}
	if header.Get("Content-Type") != "application/graphql+json" {
		t.Errorf("Expected captured content type to be kept, got %q", header.Get("Content-Type"))
	}
	if captured.Get("Host") == "" {
		t.Error("Expected captured headers to be left untouched")
	}
}
