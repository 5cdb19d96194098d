package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/credentials"
)

func TestBundleFetcher_ForwardsHeadersAndDecodes(t *testing.T) {
	headers := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "application/javascript; charset=iso-8859-1")
		_, _ = w.Write([]byte("var s=\"caf\xe9\";"))
	}))
	defer server.Close()

	header := http.Header{}
	header.Set("Cookie", "session=1")
	header.Set("Accept-Encoding", "br")
	header.Set(credentials.ReplayMarkerHeader, credentials.ReplayMarkerValue)

	body, err := NewBundleFetcher(server.Client())(context.Background(), server.URL+"/static/js/main.abcdef12.js", header)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if body != `var s="café";` {
		t.Errorf("Expected body decoded to UTF-8, got %q", body)
	}

	got := <-headers
	if got.Get("Cookie") != "session=1" {
		t.Errorf("Expected browser cookie to be forwarded, got %q", got.Get("Cookie"))
	}
	if got.Get(credentials.ReplayMarkerHeader) != credentials.ReplayMarkerValue {
		t.Error("Expected the replay marker to be forwarded")
	}
	if got.Get("Accept-Encoding") == "br" {
		t.Error("Expected the browser's Accept-Encoding to be dropped")
	}
}

func TestBundleFetcher_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewBundleFetcher(server.Client())(context.Background(), server.URL, http.Header{})
	if !errors.Is(err, &apperrors.TransferHTTPError{}) {
		t.Errorf("Expected TransferHTTPError, got %v", err)
	}
}
