package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
)

// Selectors of the platform's pages.
const (
	usernameSelector    = "#username"
	passwordSelector    = "#password"
	submitSelector      = `[type="submit"]`
	courseOutlineID     = "#course_outline"
	courseTitleSelector = "#course_title .ondemand-course-number__text"
)

// sectionsScript reads the section list the patched bundle published.
const sectionsScript = `() => JSON.stringify(globalThis.sansSections ?? null)`

// hasLoginForm reports whether the page HTML contains the login form.
func hasLoginForm(html string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, fmt.Errorf("parse page: %w", err)
	}
	return doc.Find(usernameSelector).Length() > 0, nil
}

// courseNameFromHTML extracts the course title shown above the outline.
func courseNameFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	name := strings.Join(strings.Fields(doc.Find(courseTitleSelector).First().Text()), " ")
	if name == "" {
		return "", apperrors.NewNotFoundError("course title", nil)
	}
	return name, nil
}

// parseSections decodes the JSON published by sectionsScript.
func parseSections(raw string) ([]models.RawSection, error) {
	var sections []models.RawSection
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, fmt.Errorf("decode course sections: %w", err)
	}
	if sections == nil {
		return nil, apperrors.NewNotFoundError("course sections", nil)
	}
	return sections, nil
}
