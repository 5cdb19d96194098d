package testutil

import (
	"net/http"
	"sync"
)

// FakeRequest is an in-memory credentials.InterceptedRequest.
// This is a test helper and should not be used in production code.
type FakeRequest struct {
	RawURL  string
	Headers http.Header

	// ContinueErr / RespondErr are returned by Continue / Respond when set.
	ContinueErr error
	RespondErr  error

	mu          sync.Mutex
	continued   int
	responded   int
	status      int
	contentType string
	body        []byte
}

// NewFakeRequest creates a FakeRequest for url with header pairs ("Name", "value", ...).
func NewFakeRequest(url string, pairs ...string) *FakeRequest {
	h := http.Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return &FakeRequest{RawURL: url, Headers: h}
}

func (r *FakeRequest) URL() string {
	return r.RawURL
}

func (r *FakeRequest) Header() http.Header {
	return r.Headers.Clone()
}

func (r *FakeRequest) Continue() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ContinueErr != nil {
		return r.ContinueErr
	}
	r.continued++
	return nil
}

func (r *FakeRequest) Respond(status int, contentType string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RespondErr != nil {
		return r.RespondErr
	}
	r.responded++
	r.status = status
	r.contentType = contentType
	r.body = append([]byte(nil), body...)
	return nil
}

// Resolutions returns how many times the request was continued and responded to.
func (r *FakeRequest) Resolutions() (continued, responded int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.continued, r.responded
}

// Response returns the synthetic response recorded by Respond.
func (r *FakeRequest) Response() (status int, contentType string, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.contentType, string(r.body)
}
