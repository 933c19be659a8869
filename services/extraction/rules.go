package extraction

import (
	"context"
	"regexp"
	"strings"
	"time"

	"pitstop/models"
	"pitstop/services/fusion"
)

// RuleExtractor is the regex/vocabulary fallback strategy. It is fully
// deterministic: the same (field, text) input always yields the same
// candidate, which is what makes retroactive scanning idempotent.
type RuleExtractor struct{}

// NewRuleExtractor returns the rule-based strategy.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

func (r *RuleExtractor) Name() string { return "rules" }

// ---------- package-level compiled regexes ----------

var (
	// The capture requires capitalized tokens: "I am looking for a service"
	// must not yield a name candidate.
	namePhraseRE = regexp.MustCompile(`\b(?i:my name is|i am|i'm|this is|name[:\s]+)\s+([A-Z][a-zA-Z]*(?:[ '\-][A-Z][a-zA-Z]*){0,2})`)
	phoneRE      = regexp.MustCompile(`(?:\+91[\s-]?|0)?([6-9]\d{4}[\s-]?\d{5})`)
	plateRE      = regexp.MustCompile(`\b([A-Za-z]{2}[\s-]?\d{1,2}[\s-]?[A-Za-z]{1,3}[\s-]?\d{4})\b`)
	dmyDateRE    = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	datePhraseRE = regexp.MustCompile(`(?i)\b(today|tomorrow|day after tomorrow|(?:next |this |on )?(?:sunday|monday|tuesday|wednesday|thursday|friday|saturday))\b`)
)

// Common model names seen in the field, keyed by lowercase token.
var modelVocabulary = map[string]string{
	"swift":    "Swift",
	"baleno":   "Baleno",
	"dzire":    "Dzire",
	"alto":     "Alto",
	"wagonr":   "WagonR",
	"brezza":   "Brezza",
	"i10":      "i10",
	"i20":      "i20",
	"creta":    "Creta",
	"venue":    "Venue",
	"verna":    "Verna",
	"city":     "City",
	"amaze":    "Amaze",
	"jazz":     "Jazz",
	"civic":    "Civic",
	"nexon":    "Nexon",
	"punch":    "Punch",
	"harrier":  "Harrier",
	"safari":   "Safari",
	"altroz":   "Altroz",
	"tiago":    "Tiago",
	"xuv300":   "XUV300",
	"xuv700":   "XUV700",
	"thar":     "Thar",
	"scorpio":  "Scorpio",
	"bolero":   "Bolero",
	"seltos":   "Seltos",
	"sonet":    "Sonet",
	"carens":   "Carens",
	"fortuner": "Fortuner",
	"innova":   "Innova",
	"glanza":   "Glanza",
	"kwid":     "Kwid",
	"triber":   "Triber",
	"polo":     "Polo",
	"vento":    "Vento",
	"virtus":   "Virtus",
	"slavia":   "Slavia",
	"kushaq":   "Kushaq",
	"magnite":  "Magnite",
	"hector":   "Hector",
	"astor":    "Astor",
}

// Extract implements FieldExtractor using compiled patterns and the shared
// vocabularies. history is unused: the rule strategy only reads the message
// it is given, which keeps replays over old turns side-effect free.
func (r *RuleExtractor) Extract(ctx context.Context, field models.FieldName, text string, history []models.Message) (*models.CandidateMutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch field {
	case models.FieldFirstName:
		if name := matchNamePhrase(text); name != "" {
			return candidate(field, strings.Fields(name)[0], 0.7), nil
		}
	case models.FieldLastName:
		if name := matchNamePhrase(text); name != "" {
			parts := strings.Fields(name)
			if len(parts) > 1 {
				return candidate(field, parts[len(parts)-1], 0.7), nil
			}
		}
	case models.FieldFullName:
		if name := matchNamePhrase(text); name != "" && strings.Contains(name, " ") {
			return candidate(field, name, 0.7), nil
		}
	case models.FieldPhone:
		if m := phoneRE.FindStringSubmatch(text); m != nil {
			return candidate(field, fusion.NormalizePhone(m[1]), 0.9), nil
		}
	case models.FieldVehicleBrand:
		return r.extractBrand(text), nil
	case models.FieldVehicleModel:
		for _, token := range strings.Fields(strings.ToLower(text)) {
			if model, ok := modelVocabulary[strings.Trim(token, ".,!?")]; ok {
				return candidate(field, model, 0.85), nil
			}
		}
	case models.FieldVehiclePlate:
		if m := plateRE.FindStringSubmatch(text); m != nil {
			return candidate(field, fusion.NormalizePlate(m[1]), 0.9), nil
		}
	case models.FieldAppointmentDate:
		return extractDate(text), nil
	}
	return nil, nil
}

// extractBrand matches brand vocabulary tokens exactly and, failing that,
// within edit distance one. A fuzzy hit is tagged typo_correction at reduced
// confidence so a clean extraction of the same brand still outranks it.
func (r *RuleExtractor) extractBrand(text string) *models.CandidateMutation {
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?")
		if brand, ok := fusion.CanonicalBrand(token); ok {
			return candidate(models.FieldVehicleBrand, brand, 0.9)
		}
	}
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?")
		if len(token) < 4 {
			continue
		}
		for _, alias := range fusion.BrandVocabulary() {
			if len(alias) >= 4 && editDistance(token, alias) == 1 {
				brand, _ := fusion.CanonicalBrand(alias)
				c := candidate(models.FieldVehicleBrand, brand, 0.6)
				c.Source = models.SourceTypoCorrection
				return c
			}
		}
	}
	return nil
}

func matchNamePhrase(text string) string {
	m := namePhraseRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractDate(text string) *models.CandidateMutation {
	if m := datePhraseRE.FindStringSubmatch(text); m != nil {
		if normalized, ok := fusion.ResolveDatePhrase(m[1], time.Now()); ok {
			return candidate(models.FieldAppointmentDate, normalized, 0.75)
		}
	}
	if m := dmyDateRE.FindStringSubmatch(text); m != nil {
		if d := resolveNumericDate(m[1], m[2], m[3]); d != "" {
			return candidate(models.FieldAppointmentDate, d, 0.8)
		}
	}
	return nil
}

// resolveNumericDate interprets day/month[/year] input. A missing year means
// the next occurrence of that date.
func resolveNumericDate(dayStr, monthStr, yearStr string) string {
	day, month := atoi(dayStr), atoi(monthStr)
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return ""
	}
	now := time.Now()
	year := now.Year()
	if yearStr != "" {
		year = atoi(yearStr)
		if year < 100 {
			year += 2000
		}
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if d.Day() != day {
		return "" // e.g. 31/02 rolled over
	}
	if yearStr == "" && d.Before(now) {
		d = d.AddDate(1, 0, 0)
	}
	return d.Format("2006-01-02")
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func candidate(field models.FieldName, value string, confidence float64) *models.CandidateMutation {
	return &models.CandidateMutation{
		Field:      field,
		Value:      value,
		Confidence: confidence,
		Source:     models.SourceCurrentTurn,
	}
}

// editDistance is the Levenshtein distance between two short tokens.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
