package fusion

import (
	"fmt"
	"time"

	"pitstop/models"

	"go.uber.org/zap"
)

// Engine is the data fusion engine. It owns the decision of whether a
// candidate mutation replaces the canonical field, per a deterministic
// acceptance rule. Candidates losing the comparison are discarded but the
// rejection is recorded, never silently dropped.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns a fusion engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Apply validates a candidate and, if it wins the acceptance rule, installs
// it as the canonical field. The returned audit entry describes the outcome
// either way.
func (e *Engine) Apply(store *models.FieldStore, c models.CandidateMutation) models.AuditEntry {
	entry := models.AuditEntry{
		Field:      c.Field,
		Value:      c.Value,
		Confidence: c.Confidence,
		Source:     c.Source,
		TurnIndex:  c.TurnIndex,
	}

	if store.Frozen {
		entry.Outcome = models.AuditStoreFrozen
		entry.Reason = "conversation cancelled, field store frozen"
		return entry
	}

	normalized, reason := Validate(c)
	if reason != "" {
		entry.Outcome = models.AuditValidationRejected
		entry.Reason = reason
		e.logger.Debug("candidate failed validation",
			zap.String("field", string(c.Field)),
			zap.String("reason", reason))
		return entry
	}
	entry.Value = normalized

	current, exists := store.Get(c.Field)
	if exists {
		if reason := rejectReason(current, c); reason != "" {
			entry.Outcome = models.AuditFusionRejected
			entry.Reason = reason
			e.logger.Debug("candidate lost fusion comparison",
				zap.String("field", string(c.Field)),
				zap.String("reason", reason))
			return entry
		}
	}

	store.Fields[c.Field] = models.CanonicalField{
		Value:      normalized,
		Confidence: c.Confidence,
		Source:     c.Source,
		TurnIndex:  c.TurnIndex,
		AcceptedAt: time.Now(),
	}
	entry.Outcome = models.AuditAccepted
	return entry
}

// ApplyAll runs every candidate through Apply in order and returns the audit
// entries.
func (e *Engine) ApplyAll(store *models.FieldStore, candidates []models.CandidateMutation) []models.AuditEntry {
	entries := make([]models.AuditEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, e.Apply(store, c))
	}
	return entries
}

// rejectReason returns a non-empty reason when the candidate loses against
// the canonical field. Acceptance order: a user_edit canonical accepts only
// another user_edit; otherwise strictly higher confidence wins, and equal
// confidence falls back to source priority.
func rejectReason(current models.CanonicalField, c models.CandidateMutation) string {
	if current.Source == models.SourceUserEdit && c.Source != models.SourceUserEdit {
		return "field pinned by user edit"
	}
	if c.Source == models.SourceUserEdit {
		return ""
	}
	if c.Confidence > current.Confidence {
		return ""
	}
	if c.Confidence == current.Confidence && c.Source.Priority() >= current.Source.Priority() {
		return ""
	}
	return fmt.Sprintf("confidence %.2f (%s) does not beat canonical %.2f (%s)",
		c.Confidence, c.Source, current.Confidence, current.Source)
}
