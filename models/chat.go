package models

// ChatRequest is the payload coming from the frontend into /api/chat/message.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text" binding:"required"`
}

// ChatResponse is what the message endpoint returns after a turn completes.
type ChatResponse struct {
	ConversationID    string                       `json:"conversation_id"`
	State             DialogueState                `json:"state"`
	Fields            map[FieldName]CanonicalField `json:"fields"`
	ConfirmationReady bool                         `json:"confirmation_ready"`
	MissingFields     []FieldName                  `json:"missing_fields,omitempty"`
	TurnAudit         []AuditEntry                 `json:"turn_audit,omitempty"`
	Rejection         string                       `json:"rejection,omitempty"`
}

// ActionType enumerates confirmation-stage user actions.
type ActionType string

const (
	ActionConfirm ActionType = "confirm"
	ActionEdit    ActionType = "edit"
	ActionCancel  ActionType = "cancel"
)

// ConfirmationAction is a confirm/edit/cancel request against a conversation.
type ConfirmationAction struct {
	Type  ActionType `json:"type" binding:"required"`
	Field FieldName  `json:"field,omitempty"` // edit only
	Value string     `json:"value,omitempty"` // edit only
}

// ActionResponse is returned by the confirmation action endpoint.
type ActionResponse struct {
	ConversationID string                       `json:"conversation_id"`
	State          DialogueState                `json:"state"`
	Fields         map[FieldName]CanonicalField `json:"fields,omitempty"`
	Booking        *BookingRecord               `json:"booking,omitempty"`
	Rejection      string                       `json:"rejection,omitempty"`
	MissingFields  []FieldName                  `json:"missing_fields,omitempty"`
}

// SentimentScores carries named dimension scores on a 0-10 scale, as reported
// by the sentiment backend.
type SentimentScores struct {
	Anger    float64 `json:"anger"`
	Interest float64 `json:"interest"`
}

// NeutralSentiment is the degraded default used when the sentiment backend is
// unreachable.
func NeutralSentiment() SentimentScores {
	return SentimentScores{Anger: 0, Interest: 5}
}

// ReminderPayload is the asynq task payload for appointment reminders.
type ReminderPayload struct {
	BookingID       string `json:"booking_id"`
	ConversationID  string `json:"conversation_id"`
	FirstName       string `json:"first_name"`
	Phone           string `json:"phone,omitempty"`
	VehiclePlate    string `json:"vehicle_plate"`
	AppointmentDate string `json:"appointment_date"`
}
