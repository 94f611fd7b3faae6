package automation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInputNotFound means the chat page has no editable input box.
	ErrInputNotFound = errors.New("input box not found")
	// ErrSendUnavailable means no enabled send control appeared during discovery.
	ErrSendUnavailable = errors.New("send button unavailable")
)

// Phase names a stage of the generation wait.
type Phase string

const (
	PhaseStart      Phase = "start"
	PhaseCompletion Phase = "completion"
)

// TimeoutError reports a generation phase that did not finish in time.
type TimeoutError struct {
	Phase  Phase
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for generation %s", e.Waited, e.Phase)
}
