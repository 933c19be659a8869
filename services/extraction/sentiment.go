package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pitstop/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSentiment scores anger and interest for the current message on a
// 0-10 scale. Callers substitute models.NeutralSentiment() on any error.
type GeminiSentiment struct {
	model *genai.GenerativeModel
}

// NewGeminiSentiment builds the Gemini-backed sentiment analyzer.
func NewGeminiSentiment(ctx context.Context, apiKey string) (*GeminiSentiment, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel("models/gemini-1.5-flash")
	return &GeminiSentiment{model: model}, nil
}

// Score implements SentimentAnalyzer.
func (g *GeminiSentiment) Score(ctx context.Context, text string, history []models.Message) (models.SentimentScores, error) {
	var sb strings.Builder
	sb.WriteString("Rate the customer's message in a vehicle-service chat.\n")
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text)
		}
	}
	fmt.Fprintf(&sb, "Current message: %q\n", text)
	sb.WriteString(`Reply with JSON only: {"anger": 0-10, "interest": 0-10}.`)

	resp, err := g.model.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return models.SentimentScores{}, fmt.Errorf("gemini sentiment: %w", err)
	}
	raw := collectText(resp)
	if raw == "" {
		return models.SentimentScores{}, fmt.Errorf("gemini sentiment: empty reply")
	}

	var scores models.SentimentScores
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &scores); err != nil {
		return models.SentimentScores{}, fmt.Errorf("gemini sentiment: unparseable reply: %w", err)
	}
	scores.Anger = clampScore(scores.Anger)
	scores.Interest = clampScore(scores.Interest)
	return scores, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
