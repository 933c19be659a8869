package models

import "time"

// DialogueState is the single active state of a conversation.
type DialogueState string

const (
	StateGreeting         DialogueState = "GREETING"
	StateNameCollection   DialogueState = "NAME_COLLECTION"
	StateServiceSelection DialogueState = "SERVICE_SELECTION"
	StateVehicleDetails   DialogueState = "VEHICLE_DETAILS"
	StateDateSelection    DialogueState = "DATE_SELECTION"
	StateConfirmation     DialogueState = "CONFIRMATION"
	StateCompleted        DialogueState = "COMPLETED"
	StateCancelled        DialogueState = "CANCELLED"
)

// Terminal reports whether the state has no outgoing transitions.
func (s DialogueState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Message is a single logged conversation turn.
type Message struct {
	Role      string    `bson:"role" json:"role"` // "user" or "assistant"
	Text      string    `bson:"text" json:"text"`
	TurnIndex int       `bson:"turn_index" json:"turn_index"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// TransitionEntry records one state change with its trigger reason.
type TransitionEntry struct {
	From      DialogueState `bson:"from" json:"from"`
	To        DialogueState `bson:"to" json:"to"`
	Reason    string        `bson:"reason" json:"reason"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

// AuditOutcome classifies what the fusion engine did with a candidate.
type AuditOutcome string

const (
	AuditAccepted           AuditOutcome = "accepted"
	AuditValidationRejected AuditOutcome = "validation_rejected"
	AuditFusionRejected     AuditOutcome = "fusion_rejected"
	AuditStoreFrozen        AuditOutcome = "store_frozen"
)

// AuditEntry is one line of the per-turn fusion audit trail. Rejections are
// recorded here rather than silently dropped.
type AuditEntry struct {
	Field      FieldName    `bson:"field" json:"field"`
	Value      string       `bson:"value" json:"value"`
	Confidence float64      `bson:"confidence" json:"confidence"`
	Source     SourceKind   `bson:"source" json:"source"`
	Outcome    AuditOutcome `bson:"outcome" json:"outcome"`
	Reason     string       `bson:"reason,omitempty" json:"reason,omitempty"`
	TurnIndex  int          `bson:"turn_index" json:"turn_index"`
}

// ConversationSession is the per-conversation aggregate: one dialogue state,
// one canonical field store, and the message and transition logs.
type ConversationSession struct {
	ID            string            `bson:"id" json:"id"`
	State         DialogueState     `bson:"state" json:"state"`
	FieldStore    *FieldStore       `bson:"field_store" json:"field_store"`
	Messages      []Message         `bson:"messages" json:"messages"`
	Transitions   []TransitionEntry `bson:"transitions" json:"transitions"`
	AuditTrail    []AuditEntry      `bson:"audit_trail" json:"audit_trail"`
	TurnCount     int               `bson:"turn_count" json:"turn_count"` // user-authored turns
	BookingID     string            `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
	LastMessageAt time.Time         `bson:"last_message_at" json:"last_message_at"`
}

// NewConversationSession returns a fresh session in GREETING.
func NewConversationSession(id string) *ConversationSession {
	now := time.Now()
	return &ConversationSession{
		ID:         id,
		State:      StateGreeting,
		FieldStore: NewFieldStore(),
		CreatedAt:  now,
	}
}

// UserTurns returns the user-authored messages, oldest first.
func (s *ConversationSession) UserTurns() []Message {
	var turns []Message
	for _, m := range s.Messages {
		if m.Role == "user" {
			turns = append(turns, m)
		}
	}
	return turns
}

// RecordTransition appends a transition log entry and moves the session to
// the new state.
func (s *ConversationSession) RecordTransition(to DialogueState, reason string) {
	s.Transitions = append(s.Transitions, TransitionEntry{
		From:      s.State,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	s.State = to
}
