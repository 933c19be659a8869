package dialogue

import (
	"strings"

	"pitstop/models"
)

// AngerOverrideThreshold is the anger score (0-10 scale) at or above which a
// non-confirmation conversation is pulled back to SERVICE_SELECTION.
const AngerOverrideThreshold = 6.0

// Trigger reasons recorded in the transition log.
const (
	ReasonSentimentOverride = "sentiment_override"
	ReasonCancelRequested   = "cancel_requested"
	ReasonConfirmAccepted   = "confirm_accepted"
	ReasonUserEdit          = "user_edit"
	ReasonFieldsSatisfied   = "required_fields_satisfied"
	ReasonServiceKeyword    = "service_keyword"
	ReasonNameAccepted      = "name_accepted"
	ReasonNoChange          = "no_change"
)

// Input carries everything a single transition evaluation consumes.
type Input struct {
	Text      string
	Sentiment models.SentimentScores
	// Action is set on the explicit confirmation-action path and empty on
	// the plain message path.
	Action models.ActionType
}

// Result is the outcome of a successful transition evaluation. Next may equal
// the current state (remain).
type Result struct {
	Next   models.DialogueState
	Reason string
}

var cancelPhrases = []string{
	"cancel",
	"stop this",
	"not interested",
	"forget it",
	"leave it",
	"don't want",
	"rehne do",
}

var confirmPhrases = []string{
	"confirm",
	"yes, book",
	"book it",
	"go ahead",
	"pakka",
}

var serviceKeywords = []string{
	"service",
	"servicing",
	"repair",
	"oil change",
	"maintenance",
	"checkup",
	"book",
	"appointment",
}

func containsAny(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsCancelText reports whether free text carries an explicit cancel phrase.
func IsCancelText(text string) bool { return containsAny(text, cancelPhrases) }

// IsConfirmText reports whether free text carries an explicit confirm phrase.
func IsConfirmText(text string) bool { return containsAny(text, confirmPhrases) }

// IsServiceText reports whether free text mentions a service keyword.
func IsServiceText(text string) bool { return containsAny(text, serviceKeywords) }

// requiredToAdvance maps each state to the fields that must be present before
// the conversation moves to that state's default successor.
var requiredToAdvance = map[models.DialogueState][]models.FieldName{
	models.StateNameCollection:   {models.FieldFirstName},
	models.StateServiceSelection: {models.FieldFirstName},
	models.StateVehicleDetails: {
		models.FieldVehicleBrand,
		models.FieldVehicleModel,
		models.FieldVehiclePlate,
	},
	models.StateDateSelection: {
		models.FieldFirstName,
		models.FieldVehicleBrand,
		models.FieldVehicleModel,
		models.FieldVehiclePlate,
		models.FieldAppointmentDate,
	},
}

// defaultNext maps each state to its data-driven successor.
var defaultNext = map[models.DialogueState]models.DialogueState{
	models.StateNameCollection:   models.StateVehicleDetails,
	models.StateServiceSelection: models.StateVehicleDetails,
	models.StateVehicleDetails:   models.StateDateSelection,
	models.StateDateSelection:    models.StateConfirmation,
}

// Transition evaluates the priority-ordered transition rules for one turn.
// The first matching rule wins. An invalid request (confirm with missing
// fields, any action from a terminal state) returns a *TransitionError and
// leaves the decision to remain with the caller; the machine itself never
// mutates the session.
func Transition(current models.DialogueState, store *models.FieldStore, in Input) (Result, *TransitionError) {
	if current.Terminal() {
		return Result{Next: current}, NewTerminalError(current)
	}

	// Rule 1: sentiment override.
	if in.Sentiment.Anger >= AngerOverrideThreshold && current != models.StateConfirmation {
		return Result{Next: models.StateServiceSelection, Reason: ReasonSentimentOverride}, nil
	}

	// Rule 2: explicit cancel, phrase or action, from any non-terminal state.
	if in.Action == models.ActionCancel || (in.Action == "" && IsCancelText(in.Text)) {
		return Result{Next: models.StateCancelled, Reason: ReasonCancelRequested}, nil
	}

	// Rule 3: confirmation-stage actions.
	if in.Action == models.ActionConfirm || (current == models.StateConfirmation && in.Action == "" && IsConfirmText(in.Text)) {
		if current != models.StateConfirmation {
			return Result{Next: current}, NewInvalidActionError(models.ActionConfirm, current)
		}
		if missing := store.Missing(models.RequiredFields); len(missing) > 0 {
			return Result{Next: current}, NewMissingFieldsError(missing)
		}
		return Result{Next: models.StateCompleted, Reason: ReasonConfirmAccepted}, nil
	}
	if in.Action == models.ActionEdit {
		if current != models.StateConfirmation {
			return Result{Next: current}, NewInvalidActionError(models.ActionEdit, current)
		}
		// Remain in CONFIRMATION; the summary is re-presented.
		return Result{Next: models.StateConfirmation, Reason: ReasonUserEdit}, nil
	}

	// Rule 4: data-driven advance.
	switch current {
	case models.StateGreeting:
		if IsServiceText(in.Text) {
			return Result{Next: models.StateServiceSelection, Reason: ReasonServiceKeyword}, nil
		}
		if store.Has(models.FieldFirstName) || store.Has(models.FieldFullName) {
			return Result{Next: models.StateNameCollection, Reason: ReasonNameAccepted}, nil
		}
	default:
		next, ok := defaultNext[current]
		if ok && len(store.Missing(requiredToAdvance[current])) == 0 {
			return Result{Next: next, Reason: ReasonFieldsSatisfied}, nil
		}
	}

	// Rule 5: remain.
	return Result{Next: current, Reason: ReasonNoChange}, nil
}
