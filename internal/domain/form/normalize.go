package form

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Normalize converts a raw Kobo form definition into a flat ordered Schema.
// It returns ErrNoContent when the definition carries no content at all;
// every other shape degrades gracefully (missing labels become empty
// strings, unknown types map to text, missing choice lists yield empty
// choice slices). Question names are preserved verbatim, including empty or
// duplicate ones; deduplication is the caller's responsibility.
func Normalize(def *Definition) (*Schema, error) {
	if def == nil || def.Content == nil {
		return nil, ErrNoContent
	}

	survey, _ := def.Content["survey"].([]any)
	choices, _ := def.Content["choices"].([]any)
	settings, _ := def.Content["settings"].(map[string]any)

	choiceLists := indexChoices(choices)

	questions := make([]Question, 0, len(survey))
	for _, raw := range survey {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if q, ok := normalizeItem(item, choiceLists); ok {
			questions = append(questions, q)
		}
	}

	return &Schema{
		FormID:     def.UID,
		FormName:   def.Name,
		FormTitle:  resolveTitle(settings, def.Name),
		Questions:  questions,
		CreatedAt:  def.CreatedAt,
		ModifiedAt: def.ModifiedAt,
		Deployed:   def.Deployed,
		Owner:      def.Owner,
	}, nil
}

// indexChoices builds the list-name index over the raw choices sequence in
// a single pass, preserving source order within each list.
func indexChoices(choices []any) map[string][]Choice {
	lists := make(map[string][]Choice)
	for _, raw := range choices {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		listName := asString(item["list_name"])
		lists[listName] = append(lists[listName], Choice{
			Value: asString(item["name"]),
			Label: resolveLabel(item["label"]),
		})
	}
	return lists
}

// normalizeItem converts one survey item into a Question. Structural
// markers (group boundaries, notes, start/end) yield no question.
func normalizeItem(item map[string]any, choiceLists map[string][]Choice) (Question, bool) {
	rawType := asString(item["type"])
	if _, marker := structuralMarkers[rawType]; marker {
		return Question{}, false
	}

	q := Question{
		Name:              asString(item["name"]),
		Label:             resolveLabel(item["label"]),
		Type:              mapType(rawType),
		Required:          asBool(item["required"]),
		Hint:              resolveLabel(item["hint"]),
		ConstraintMessage: resolveLabel(item["constraint_message"]),
		Relevant:          asString(item["relevant"]),
		Default:           asString(item["default"]),
		ReadOnly:          asBool(item["readonly"]),
		Appearance:        asString(item["appearance"]),
	}

	// The constraint expression is opaque and passed through untouched.
	if c, ok := item["constraint"].(string); ok {
		q.Constraint = c
	}

	if q.Type == TypeSingleChoice || q.Type == TypeMultipleChoice {
		listName := asString(item["select_from_list_name"])
		q.Choices = choiceLists[listName]
		q.AllowOther = strings.Contains(q.Appearance, "other")
	}

	if q.Type == TypeNumber || q.Type == TypeDecimal || q.Type == TypeRange {
		// Best-effort bound extraction from provider constraint metadata.
		// Absent values stay nil; zero is a valid bound.
		if c, ok := item["constraint"].(map[string]any); ok {
			q.Min = asFloatPtr(c["min"])
			q.Max = asFloatPtr(c["max"])
		}
	}

	return q, true
}

// mapType translates a provider raw type tag to the normalized vocabulary.
// Unrecognized tags map to text so that normalization never fails over an
// unknown type.
func mapType(raw string) Type {
	if t, ok := typeMapping[raw]; ok {
		return t
	}
	return TypeText
}

// resolveLabel resolves a raw label to a single display string. Plain
// strings pass through verbatim. Multi-language maps prefer an English
// variant over the designated default entry over the lexicographically
// first entry, which keeps resolution deterministic even though Go maps
// carry no iteration order.
func resolveLabel(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"English", "english", "default"} {
			if s := asString(v[key]); s != "" {
				return s
			}
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s := asString(v[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return asString(raw)
	}
}

// resolveTitle reads the display title from form settings, falling back to
// the asset name when settings carry none.
func resolveTitle(settings map[string]any, fallback string) string {
	if settings != nil {
		if s := asString(settings["form_title"]); s != "" {
			return s
		}
		if s := resolveLabel(settings["label"]); s != "" {
			return s
		}
	}
	return fallback
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// asBool interprets the loose truthiness XLSForm sources use for flags
// like required/readonly.
func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return b != 0
	}
	return false
}

func asFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return &f
		}
	}
	return nil
}
