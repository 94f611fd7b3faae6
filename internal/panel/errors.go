package panel

import (
	"context"
	"errors"

	"github.com/xkilldash9x/courselens/internal/gemini"
	"github.com/xkilldash9x/courselens/internal/transcript"
)

var (
	// ErrBusy is returned when an action starts while another is running.
	ErrBusy = errors.New("another action is in progress")
	// ErrAPIKeyMissing means no Gemini API key is configured.
	ErrAPIKeyMissing = errors.New("gemini API key is not set")
	// ErrNotCourseTab means no open tab belongs to the course site.
	ErrNotCourseTab = errors.New("no course tab is open")
	// ErrNoResult is returned by copy and export before anything was produced.
	ErrNoResult = errors.New("nothing to copy or export yet")
)

// CourseTabGuidance is the message shown to users for ErrNotCourseTab.
const CourseTabGuidance = "Please open a Udemy course page."

// Message converts an action error into the text shown in the error view.
func Message(err error) string {
	var apiErr *gemini.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotCourseTab):
		return CourseTabGuidance
	case errors.Is(err, transcript.ErrNotFound):
		return transcript.Guidance
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The operation timed out."
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An error occurred."
}
