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

// GeminiExtractor is the model-based extraction strategy. One Gemini call per
// (field, turn); the response is a small JSON object with the value and the
// model's own confidence.
type GeminiExtractor struct {
	model *genai.GenerativeModel
}

// NewGeminiExtractor builds the model-backed strategy. Returns an error
// rather than panicking so the caller can fall back to rules-only operation.
func NewGeminiExtractor(ctx context.Context, apiKey string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel("models/gemini-1.5-flash")
	return &GeminiExtractor{model: model}, nil
}

func (g *GeminiExtractor) Name() string { return "gemini" }

var fieldPrompts = map[models.FieldName]string{
	models.FieldFirstName:       "the customer's first name",
	models.FieldLastName:        "the customer's last name",
	models.FieldFullName:        "the customer's full name",
	models.FieldPhone:           "the customer's 10-digit phone number",
	models.FieldVehicleBrand:    "the vehicle's brand (manufacturer)",
	models.FieldVehicleModel:    "the vehicle's model name",
	models.FieldVehiclePlate:    "the vehicle's registration plate number",
	models.FieldAppointmentDate: "the requested appointment date",
}

type extractionReply struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Extract asks the model for one field. A "null" value or empty reply is an
// ordinary no-match; transport or parse failures surface as errors and are
// consumed upstream as zero candidates.
func (g *GeminiExtractor) Extract(ctx context.Context, field models.FieldName, text string, history []models.Message) (*models.CandidateMutation, error) {
	what, ok := fieldPrompts[field]
	if !ok {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("You extract booking data from a vehicle-service chat.\n")
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text)
		}
	}
	fmt.Fprintf(&sb, "Current message: %q\n", text)
	fmt.Fprintf(&sb, "Extract %s from the current message only.\n", what)
	sb.WriteString(`Reply with JSON only: {"value": "...", "confidence": 0.0-1.0}. `)
	sb.WriteString(`If the message does not contain it, reply {"value": null, "confidence": 0}.`)

	resp, err := g.model.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("gemini extract %s: %w", field, err)
	}
	raw := collectText(resp)
	if raw == "" {
		return nil, nil
	}

	var reply extractionReply
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &reply); err != nil {
		return nil, fmt.Errorf("gemini extract %s: unparseable reply: %w", field, err)
	}
	if reply.Value == "" || reply.Confidence <= 0 {
		return nil, nil
	}
	if reply.Confidence > 1 {
		reply.Confidence = 1
	}
	return &models.CandidateMutation{
		Field:      field,
		Value:      reply.Value,
		Confidence: reply.Confidence,
		Source:     models.SourceCurrentTurn,
	}, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return strings.TrimSpace(sb.String())
}

// stripCodeFence removes a ```json ... ``` wrapper the model sometimes adds.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
