package dialogue

import (
	"fmt"
	"strings"

	"pitstop/models"
)

// TransitionError is the structured rejection returned when a requested
// transition is not in the table. The session state is left unchanged.
type TransitionError struct {
	Code    string
	Message string
	Missing []models.FieldName
}

func (e *TransitionError) Error() string {
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}
		return fmt.Sprintf("%s: %s (missing: %s)", e.Code, e.Message, strings.Join(names, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewTerminalError rejects any action attempted from a terminal state.
func NewTerminalError(state models.DialogueState) *TransitionError {
	return &TransitionError{
		Code:    "terminalState",
		Message: fmt.Sprintf("conversation already %s", strings.ToLower(string(state))),
	}
}

// NewMissingFieldsError rejects a confirm request issued before every
// required field is present.
func NewMissingFieldsError(missing []models.FieldName) *TransitionError {
	return &TransitionError{
		Code:    "missingFields",
		Message: "cannot confirm booking with incomplete data",
		Missing: missing,
	}
}

// NewInvalidActionError rejects an action that has no meaning in the current
// state, e.g. confirm outside CONFIRMATION.
func NewInvalidActionError(action models.ActionType, state models.DialogueState) *TransitionError {
	return &TransitionError{
		Code:    "invalidAction",
		Message: fmt.Sprintf("action %q is not valid in state %s", action, state),
	}
}
