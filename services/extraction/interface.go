package extraction

import (
	"context"

	"pitstop/models"
)

// FieldExtractor wraps one extraction strategy for the booking fields. A nil
// candidate with a nil error is an ordinary no-match; an error means genuine
// infrastructure failure and is consumed upstream as "no extraction".
type FieldExtractor interface {
	// Extract returns at most one candidate for the given field from the
	// current message text plus a bounded history window.
	Extract(ctx context.Context, field models.FieldName, text string, history []models.Message) (*models.CandidateMutation, error)
	// Name identifies the strategy in logs.
	Name() string
}

// SentimentAnalyzer scores the emotional dimensions of the current message.
// Failures degrade to a neutral default upstream; they never abort a turn.
type SentimentAnalyzer interface {
	Score(ctx context.Context, text string, history []models.Message) (models.SentimentScores, error)
}

// Registry selects the extraction strategies to run per field. Strategy
// selection is configuration, not inheritance: the model-based extractor is
// present only when a backend is configured, the rule-based one always is.
type Registry struct {
	extractors []FieldExtractor
	rules      *RuleExtractor
}

// NewRegistry builds a registry from the available strategies. Order matters
// only for log readability; the fusion engine reconciles the candidates.
func NewRegistry(rules *RuleExtractor, model FieldExtractor) *Registry {
	r := &Registry{rules: rules}
	if model != nil {
		r.extractors = append(r.extractors, model)
	}
	r.extractors = append(r.extractors, rules)
	return r
}

// Extractors returns every configured strategy.
func (r *Registry) Extractors() []FieldExtractor {
	return r.extractors
}

// Rules returns the deterministic rule-based strategy. The retroactive
// scanner uses only this one, to keep the scan idempotent.
func (r *Registry) Rules() *RuleExtractor {
	return r.rules
}
