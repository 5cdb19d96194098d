package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// ManifestFetchError is returned when the manifest query for a module answers with a
// non-success status. It aborts the course walk.
type ManifestFetchError struct {
	ModuleID   string
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *ManifestFetchError) Error() string {
	return fmt.Sprintf("manifest query for module %s returned %d - %s", e.ModuleID, e.StatusCode, e.Status)
}

// Is allows for error checking with errors.Is().
func (e *ManifestFetchError) Is(target error) bool {
	_, ok := target.(*ManifestFetchError)
	return ok
}

// TransferHTTPError is returned when a video request answers with a non-success status.
type TransferHTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *TransferHTTPError) Error() string {
	return fmt.Sprintf("fetch returned %d - %s", e.StatusCode, e.Status)
}

// Is allows for error checking with errors.Is().
func (e *TransferHTTPError) Is(target error) bool {
	_, ok := target.(*TransferHTTPError)
	return ok
}

// InvalidCourseError is returned when the course option does not look like a course id.
type InvalidCourseError struct {
	Course string
}

// Error implements the error interface.
func (e *InvalidCourseError) Error() string {
	return fmt.Sprintf("invalid course ID %q", e.Course)
}

// Is allows for error checking with errors.Is().
func (e *InvalidCourseError) Is(target error) bool {
	_, ok := target.(*InvalidCourseError)
	return ok
}

// NewInvalidCourseError creates a new InvalidCourseError.
func NewInvalidCourseError(course string) *InvalidCourseError {
	return &InvalidCourseError{Course: course}
}

// BrowserNotFoundError is returned when no usable browser executable could be located.
type BrowserNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *BrowserNotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("no Chromium executable was found at %q, please specify one using the --browser argument", e.Path)
	}
	return "no Chromium executable was found, please specify one using the --browser argument"
}

// Is allows for error checking with errors.Is().
func (e *BrowserNotFoundError) Is(target error) bool {
	_, ok := target.(*BrowserNotFoundError)
	return ok
}

// InterceptionError is returned when an intercepted browser request could not be resolved,
// leaving the browser's network layer stalled.
type InterceptionError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *InterceptionError) Error() string {
	return fmt.Sprintf("intercepted request %s left unresolved: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InterceptionError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *InterceptionError) Is(target error) bool {
	_, ok := target.(*InterceptionError)
	return ok
}

// FilesystemError marks a filesystem failure that points at the environment rather than
// the network. The scheduler stops the run when it sees one.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *FilesystemError) Is(target error) bool {
	_, ok := target.(*FilesystemError)
	return ok
}

// IsFatal reports whether err must stop the whole run instead of failing a single video.
func IsFatal(err error) bool {
	return errors.Is(err, &FilesystemError{})
}
