package conversation

import (
	"context"

	"pitstop/models"
	"pitstop/services/extraction"
)

// RetroScanner replays a bounded window of prior user turns through the
// deterministic rule-based extractor to recover fields the current turn did
// not produce. It only proposes candidates; the fusion engine decides.
type RetroScanner struct {
	rules  *extraction.RuleExtractor
	window int // max prior user turns scanned
}

// NewRetroScanner bounds the scan at window user turns.
func NewRetroScanner(rules *extraction.RuleExtractor, window int) *RetroScanner {
	if window <= 0 {
		window = 5
	}
	return &RetroScanner{rules: rules, window: window}
}

// Scan walks the most recent prior user turns, newest first, and returns one
// candidate per still-missing field, tagged retroactive_extraction. Scanning
// the same (missing, history) twice yields the same candidates: the rule
// extractor is deterministic and the scan has no side effects.
func (r *RetroScanner) Scan(ctx context.Context, missing []models.FieldName, history []models.Message, turnIndex int) []models.CandidateMutation {
	if len(missing) == 0 || len(history) == 0 {
		return nil
	}

	start := len(history) - r.window
	if start < 0 {
		start = 0
	}
	window := history[start:]

	var candidates []models.CandidateMutation
	for _, field := range missing {
		// Newest turn wins for a given field.
		for i := len(window) - 1; i >= 0; i-- {
			c, err := r.rules.Extract(ctx, field, window[i].Text, nil)
			if err != nil || c == nil {
				continue
			}
			c.Source = models.SourceRetroactive
			c.TurnIndex = turnIndex
			candidates = append(candidates, *c)
			break
		}
	}
	return candidates
}
