package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// ManifestSlide is one slide in a generated manifest response.
type ManifestSlide struct {
	Name      string
	ID        string
	VideoPath string
}

// ManifestOptions contains options for generating a ModuleQuery response
type ManifestOptions struct {
	ModuleID string
	BaseURL  string
	Cookies  [][2]string // ordered key/value pairs
	Slides   []ManifestSlide
}

// GenerateManifestJSON builds a GraphQL ModuleQuery response body.
func GenerateManifestJSON(opts ManifestOptions) string {
	type cookie struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	type slide struct {
		Name      string `json:"name"`
		ID        string `json:"id"`
		VideoPath string `json:"videoPath"`
	}

	cookies := make([]cookie, 0, len(opts.Cookies))
	for _, c := range opts.Cookies {
		cookies = append(cookies, cookie{Key: c[0], Value: c[1]})
	}
	slides := make([]slide, 0, len(opts.Slides))
	for i, s := range opts.Slides {
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("slide-%d", i+1)
		}
		slides = append(slides, slide{Name: s.Name, ID: id, VideoPath: s.VideoPath})
	}

	body := map[string]any{
		"data": map[string]any{
			"module": map[string]any{
				"id":      opts.ModuleID,
				"baseUrl": opts.BaseURL,
				"cookies": cookies,
				"slides":  slides,
			},
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

// SlideNames creates slides named after the given names.
func SlideNames(names ...string) []ManifestSlide {
	slides := make([]ManifestSlide, len(names))
	for i, n := range names {
		slides[i] = ManifestSlide{Name: n}
	}
	return slides
}

// GenerateLoginPageHTML returns a page containing the platform's login form.
func GenerateLoginPageHTML() string {
	return `<!DOCTYPE html>
<html><body>
<form action="/login" method="post">
  <input id="username" name="username" type="text">
  <input id="password" name="password" type="password">
  <button type="submit">Log in</button>
</form>
</body></html>`
}

// GenerateCoursePageHTML returns a course page with the given title and section names in its outline.
func GenerateCoursePageHTML(title string, sections ...string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><body>`)
	sb.WriteString(`<div id="course_title"><span class="ondemand-course-number__text">`)
	sb.WriteString(html.EscapeString(title))
	sb.WriteString(`</span></div><ul id="course_outline">`)
	for _, s := range sections {
		sb.WriteString(`<li>` + html.EscapeString(s) + `</li>`)
	}
	sb.WriteString(`</ul></body></html>`)
	return sb.String()
}
