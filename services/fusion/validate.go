package fusion

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"pitstop/models"
)

// Field-level validation runs before the acceptance rule. A candidate that
// fails its field's syntactic contract, or trips a semantic rejection list,
// never reaches fusion.

var (
	phoneDigitsRE = regexp.MustCompile(`^\d{10}$`)
	plateRE       = regexp.MustCompile(`^[A-Z]{2}\d{1,2}[A-Z]{1,3}\d{4}$`)
	nameRE        = regexp.MustCompile(`^[A-Za-z]+(?:[ '\-][A-Za-z]+)*$`)
	modelRE       = regexp.MustCompile(`^[A-Za-z0-9]+(?:[ \-][A-Za-z0-9]+)*$`)
	isoDateRE     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonDigitRE    = regexp.MustCompile(`\D`)
)

// courtesyWords are filler/courtesy tokens that must never populate a name
// field. Mixed English/Hindi because that is what the traffic looks like.
var courtesyWords = map[string]bool{
	"thanks":    true,
	"thank":     true,
	"thankyou":  true,
	"ok":        true,
	"okay":      true,
	"fine":      true,
	"sure":      true,
	"yes":       true,
	"no":        true,
	"hello":     true,
	"hi":        true,
	"hey":       true,
	"bye":       true,
	"goodbye":   true,
	"please":    true,
	"welcome":   true,
	"great":     true,
	"cool":      true,
	"done":      true,
	"hmm":       true,
	"shukriya":  true,
	"dhanyavad": true,
	"theek":     true,
	"haan":      true,
	"nahi":      true,
	"achha":     true,
}

// brandVocabulary maps lowercase brand aliases to their canonical form. Any
// token found here must never populate a name field.
var brandVocabulary = map[string]string{
	"maruti":     "Maruti Suzuki",
	"suzuki":     "Maruti Suzuki",
	"hyundai":    "Hyundai",
	"honda":      "Honda",
	"toyota":     "Toyota",
	"tata":       "Tata",
	"mahindra":   "Mahindra",
	"kia":        "Kia",
	"ford":       "Ford",
	"renault":    "Renault",
	"skoda":      "Skoda",
	"volkswagen": "Volkswagen",
	"vw":         "Volkswagen",
	"bmw":        "BMW",
	"mercedes":   "Mercedes-Benz",
	"benz":       "Mercedes-Benz",
	"audi":       "Audi",
	"nissan":     "Nissan",
	"mg":         "MG",
	"volvo":      "Volvo",
	"jeep":       "Jeep",
}

// CanonicalBrand returns the canonical brand name for a token, if the token
// belongs to the brand vocabulary.
func CanonicalBrand(token string) (string, bool) {
	brand, ok := brandVocabulary[strings.ToLower(strings.TrimSpace(token))]
	return brand, ok
}

// BrandVocabulary returns the lowercase brand aliases. Exposed for the
// rule-based extractor.
func BrandVocabulary() []string {
	out := make([]string, 0, len(brandVocabulary))
	for alias := range brandVocabulary {
		out = append(out, alias)
	}
	return out
}

// IsCourtesyWord reports whether a single token is on the courtesy/filler
// rejection list.
func IsCourtesyWord(token string) bool {
	return courtesyWords[strings.ToLower(strings.TrimSpace(token))]
}

// NormalizePhone strips separators and an Indian country prefix, returning
// the bare subscriber number.
func NormalizePhone(raw string) string {
	digits := nonDigitRE.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "91") && len(digits) == 12 {
		digits = digits[2:]
	}
	if strings.HasPrefix(digits, "0") && len(digits) == 11 {
		digits = digits[1:]
	}
	return digits
}

// NormalizePlate uppercases and removes spacing/dashes from a registration
// number.
func NormalizePlate(raw string) string {
	cleaned := strings.ToUpper(raw)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	return cleaned
}

// Validate checks a candidate against its field's syntactic contract and
// semantic rejection lists. It returns the normalized value on success, or a
// reason string on rejection. The candidate itself is not mutated.
func Validate(c models.CandidateMutation) (string, string) {
	value := strings.TrimSpace(c.Value)
	if value == "" {
		return "", "empty value"
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return "", fmt.Sprintf("confidence %.2f out of range", c.Confidence)
	}

	switch c.Field {
	case models.FieldFirstName, models.FieldLastName, models.FieldFullName:
		return validateName(value)
	case models.FieldPhone:
		phone := NormalizePhone(value)
		if !phoneDigitsRE.MatchString(phone) {
			return "", "phone must be exactly 10 digits"
		}
		return phone, ""
	case models.FieldVehicleBrand:
		brand, ok := CanonicalBrand(value)
		if !ok {
			return "", "unknown vehicle brand"
		}
		return brand, ""
	case models.FieldVehicleModel:
		if len(value) < 2 || len(value) > 30 || !modelRE.MatchString(value) {
			return "", "model must be a short alphanumeric token"
		}
		return value, ""
	case models.FieldVehiclePlate:
		plate := NormalizePlate(value)
		if !plateRE.MatchString(plate) {
			return "", "plate does not match registration pattern"
		}
		return plate, ""
	case models.FieldAppointmentDate:
		return validateDate(value)
	default:
		return "", fmt.Sprintf("unknown field %q", c.Field)
	}
}

func validateName(value string) (string, string) {
	runes := []rune(value)
	if len(runes) < 2 || len(runes) > 40 {
		return "", "name length out of range"
	}
	if !nameRE.MatchString(value) {
		return "", "name must be alphabetic with space, apostrophe or hyphen separators"
	}
	for _, token := range strings.Fields(value) {
		if IsCourtesyWord(token) {
			return "", fmt.Sprintf("%q is a courtesy word, not a name", token)
		}
		if _, ok := CanonicalBrand(token); ok {
			return "", fmt.Sprintf("%q is a vehicle brand, not a name", token)
		}
	}
	return titleCase(value), ""
}

func validateDate(value string) (string, string) {
	if isoDateRE.MatchString(value) {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return "", "invalid calendar date"
		}
		return value, ""
	}
	if normalized, ok := ResolveDatePhrase(value, time.Now()); ok {
		return normalized, ""
	}
	return "", "unrecognized date phrase"
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ResolveDatePhrase maps a relative phrase ("tomorrow", "next monday", a bare
// weekday) to the next matching calendar date, formatted YYYY-MM-DD.
func ResolveDatePhrase(phrase string, now time.Time) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	switch p {
	case "today":
		return now.Format("2006-01-02"), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case "day after tomorrow":
		return now.AddDate(0, 0, 2).Format("2006-01-02"), true
	}

	p = strings.TrimPrefix(p, "next ")
	p = strings.TrimPrefix(p, "on ")
	p = strings.TrimPrefix(p, "this ")
	wd, ok := weekdays[p]
	if !ok {
		return "", false
	}
	// Next occurrence of the weekday, never today.
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days).Format("2006-01-02"), true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
