// Package answers interprets raw submission payloads against a normalized
// form schema: typed coercion on one side, field-level validation on the
// other. Both operations are pure functions and safe for concurrent use.
package answers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
)

// metaPrefix marks provider bookkeeping fields that are not user answers.
const metaPrefix = "meta/"

// Location is a parsed geopoint answer. Altitude and Accuracy are nil when
// the source carried fewer than three or four tokens.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Parse coerces each answer in raw to the semantic type its question
// declares. System fields (leading underscore or meta/ namespace) are
// dropped, unknown fields pass through unchanged, and any coercion failure
// falls back to the original raw value for that one field. Parse never
// fails as a whole.
func Parse(raw map[string]any, schema *form.Schema) map[string]any {
	parsed := make(map[string]any, len(raw))
	for name, value := range raw {
		if isSystemField(name) {
			continue
		}
		q, ok := schema.Question(name)
		if !ok {
			parsed[name] = value
			continue
		}
		parsed[name] = coerce(value, q.Type)
	}
	return parsed
}

// Validate checks raw against the schema in schema order and returns
// per-field error messages. Fields with clean answers contribute no entry.
// A submission with validation problems is a representable outcome, not a
// failure, so Validate never returns an error.
func Validate(raw map[string]any, schema *form.Schema) map[string][]string {
	errs := make(map[string][]string)
	for i := range schema.Questions {
		q := &schema.Questions[i]
		value := raw[q.Name]

		var fieldErrs []string
		if q.Required && isEmpty(value) {
			fieldErrs = append(fieldErrs, fmt.Sprintf("%s is required", displayLabel(q)))
		}

		if !isEmpty(value) {
			switch q.Type {
			case form.TypeNumber:
				if _, ok := toInt(value); !ok {
					fieldErrs = append(fieldErrs, fmt.Sprintf("%s must be a number", displayLabel(q)))
				}
			case form.TypeDecimal:
				if _, ok := toFloat(value); !ok {
					fieldErrs = append(fieldErrs, fmt.Sprintf("%s must be a decimal number", displayLabel(q)))
				}
			case form.TypeSingleChoice:
				if !validChoice(q, stringValue(value)) {
					fieldErrs = append(fieldErrs, fmt.Sprintf("invalid choice %q for %s", stringValue(value), displayLabel(q)))
				}
			case form.TypeMultipleChoice:
				for _, selected := range selectedValues(value) {
					if !validChoice(q, selected) {
						fieldErrs = append(fieldErrs, fmt.Sprintf("invalid choice %q for %s", selected, displayLabel(q)))
					}
				}
			}
		}

		if len(fieldErrs) > 0 {
			errs[q.Name] = fieldErrs
		}
	}
	return errs
}

func isSystemField(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, metaPrefix)
}

// coerce applies the type-directed conversion for one field. Failures
// return the original value unmodified.
func coerce(value any, t form.Type) any {
	if value == nil || value == "" {
		return nil
	}

	switch t {
	case form.TypeNumber:
		if n, ok := toInt(value); ok {
			return n
		}
		return value
	case form.TypeDecimal:
		if f, ok := toFloat(value); ok {
			return f
		}
		return value
	case form.TypeMultipleChoice:
		return selectedValues(value)
	case form.TypeLocation:
		if s, ok := value.(string); ok {
			if loc, ok := parseLocation(s); ok {
				return loc
			}
		}
		return value
	case form.TypeDate, form.TypeDatetime:
		return stringValue(value)
	default:
		return stringValue(value)
	}
}

// parseLocation interprets a whitespace-separated string of 2-4 numeric
// tokens positionally as latitude, longitude, altitude, accuracy.
func parseLocation(s string) (Location, bool) {
	tokens := strings.Fields(s)
	if len(tokens) < 2 || len(tokens) > 4 {
		return Location{}, false
	}
	nums := make([]float64, len(tokens))
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Location{}, false
		}
		nums[i] = f
	}
	loc := Location{Latitude: nums[0], Longitude: nums[1]}
	if len(nums) > 2 {
		loc.Altitude = &nums[2]
	}
	if len(nums) > 3 {
		loc.Accuracy = &nums[3]
	}
	return loc, true
}

// selectedValues normalizes a multiple-choice answer to an ordered value
// list: space-separated strings split on whitespace, lists pass through,
// scalars wrap as singletons.
func selectedValues(value any) []string {
	switch v := value.(type) {
	case string:
		return strings.Fields(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, stringValue(e))
		}
		return out
	default:
		return []string{stringValue(value)}
	}
}

func validChoice(q *form.Question, value string) bool {
	for _, c := range q.Choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

func displayLabel(q *form.Question) string {
	if q.Label != "" {
		return q.Label
	}
	return q.Name
}

func isEmpty(value any) bool {
	return value == nil || value == ""
}

func toInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
