package browser

import (
	"net/http"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ondemand-tools/ondemand-dl/internal/credentials"
)

// hijackedRequest adapts a paused rod request to the harvester's view of it. The router
// applies the decision after the handler returns.
type hijackedRequest struct {
	hijack *rod.Hijack
	url    string
	header http.Header
}

func newHijackedRequest(h *rod.Hijack, cookies func(url string) string) *hijackedRequest {
	url := h.Request.URL().String()
	header := h.Request.Req().Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	fillCookie(url, header, cookies)
	return &hijackedRequest{hijack: h, url: url, header: header}
}

// fillCookie sets the Cookie header of a paused video segment request from the browser's
// cookie jar. Paused requests may not carry the cookies the network stack attaches later.
func fillCookie(url string, header http.Header, cookies func(url string) string) {
	if cookies == nil || header.Get("Cookie") != "" || !credentials.IsVideoSegment(url) {
		return
	}
	if !strings.HasPrefix(url, "http") {
		return
	}
	if line := cookies(url); line != "" {
		header.Set("Cookie", line)
	}
}

func (r *hijackedRequest) URL() string {
	return r.url
}

func (r *hijackedRequest) Header() http.Header {
	return r.header
}

func (r *hijackedRequest) Continue() error {
	r.hijack.ContinueRequest(&proto.FetchContinueRequest{})
	return nil
}

func (r *hijackedRequest) Respond(status int, contentType string, body []byte) error {
	r.hijack.Response.Payload().ResponseCode = status
	r.hijack.Response.SetHeader("Content-Type", contentType)
	r.hijack.Response.SetBody(body)
	return nil
}

// cookieLine joins the browser cookies for url into a Cookie header value.
func cookieLine(page *rod.Page) func(url string) string {
	return func(url string) string {
		cookies, err := page.Cookies([]string{url})
		if err != nil {
			return ""
		}
		pairs := make([]string, 0, len(cookies))
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		return strings.Join(pairs, "; ")
	}
}
