// Package form converts raw KoboToolbox form definitions into a flat,
// client-agnostic schema suitable for rendering dynamic forms.
package form

// Type is the normalized vocabulary of answer-field types, independent of
// the provider's raw type tags.
type Type string

// Normalized question types.
const (
	TypeText           Type = "text"
	TypeNumber         Type = "number"
	TypeDecimal        Type = "decimal"
	TypeDate           Type = "date"
	TypeDatetime       Type = "datetime"
	TypeTime           Type = "time"
	TypeSingleChoice   Type = "single_choice"
	TypeMultipleChoice Type = "multiple_choice"
	TypeLocation       Type = "location"
	TypeLine           Type = "line"
	TypeArea           Type = "area"
	TypePhoto          Type = "photo"
	TypeAudio          Type = "audio"
	TypeVideo          Type = "video"
	TypeFile           Type = "file"
	TypeBarcode        Type = "barcode"
	TypeCalculated     Type = "calculated"
	TypeAcknowledge    Type = "acknowledge"
	TypeRange          Type = "range"
)

// typeMapping translates Kobo raw type tags to the normalized vocabulary.
// Unknown tags fall back to TypeText; see mapType.
var typeMapping = map[string]Type{
	"text":            TypeText,
	"integer":         TypeNumber,
	"decimal":         TypeDecimal,
	"date":            TypeDate,
	"datetime":        TypeDatetime,
	"time":            TypeTime,
	"select_one":      TypeSingleChoice,
	"select_multiple": TypeMultipleChoice,
	"geopoint":        TypeLocation,
	"geotrace":        TypeLine,
	"geoshape":        TypeArea,
	"image":           TypePhoto,
	"audio":           TypeAudio,
	"video":           TypeVideo,
	"file":            TypeFile,
	"barcode":         TypeBarcode,
	"calculate":       TypeCalculated,
	"acknowledge":     TypeAcknowledge,
	"range":           TypeRange,
}

// structuralMarkers are survey items that demarcate grouping or form
// boundaries and carry no answerable data. They never become questions.
var structuralMarkers = map[string]struct{}{
	"begin_group": {},
	"end_group":   {},
	"note":        {},
	"start":       {},
	"end":         {},
}

// Definition is the raw form definition as returned by the Kobo assets API.
// Content holds the nested survey/choices/settings structure and is treated
// as opaque JSON-decoded data.
type Definition struct {
	UID        string         `json:"uid"`
	Name       string         `json:"name"`
	Owner      string         `json:"owner__username"`
	CreatedAt  string         `json:"date_created"`
	ModifiedAt string         `json:"date_modified"`
	Deployed   bool           `json:"deployment__active"`
	Content    map[string]any `json:"content"`
}

// Choice is one selectable option of a choice-bearing question.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is one answerable field of a normalized schema. Name is the join
// key to answer payloads and is expected to be unique within a schema; the
// normalizer preserves whatever names the source carries (see Normalize).
type Question struct {
	Name              string   `json:"name"`
	Label             string   `json:"label"`
	Type              Type     `json:"type"`
	Required          bool     `json:"required"`
	Hint              string   `json:"hint,omitempty"`
	Constraint        string   `json:"constraint,omitempty"`
	ConstraintMessage string   `json:"constraint_message,omitempty"`
	Relevant          string   `json:"relevant,omitempty"`
	Default           string   `json:"default,omitempty"`
	ReadOnly          bool     `json:"readonly,omitempty"`
	Appearance        string   `json:"appearance,omitempty"`
	Choices           []Choice `json:"choices,omitempty"`
	AllowOther        bool     `json:"allow_other,omitempty"`

	// Min and Max are optional numeric bounds; nil means unset. Zero is a
	// valid bound and must not be confused with "unset".
	Min *float64 `json:"min_value,omitempty"`
	Max *float64 `json:"max_value,omitempty"`
}

// Schema is the flat, ordered question list plus form-level metadata.
// Built fresh on every Normalize call and never mutated afterwards, so it
// is safe to share across concurrent readers.
type Schema struct {
	FormID     string     `json:"form_id"`
	FormName   string     `json:"form_name"`
	FormTitle  string     `json:"form_title"`
	Questions  []Question `json:"questions"`
	CreatedAt  string     `json:"created_at,omitempty"`
	ModifiedAt string     `json:"modified_at,omitempty"`
	Deployed   bool       `json:"deployment_status"`
	Owner      string     `json:"owner,omitempty"`
}

// Question returns the question with the given name, or false when the
// schema has no such question.
func (s *Schema) Question(name string) (Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].Name == name {
			return s.Questions[i], true
		}
	}
	return Question{}, false
}
