package form

// Summary carries aggregate statistics about a normalized schema, used by
// form listings and dashboards.
type Summary struct {
	FormID            string         `json:"form_id"`
	FormName          string         `json:"form_name"`
	TotalQuestions    int            `json:"total_questions"`
	RequiredQuestions int            `json:"required_questions"`
	OptionalQuestions int            `json:"optional_questions"`
	ChoiceQuestions   int            `json:"choice_questions"`
	QuestionTypes     map[string]int `json:"question_types"`
	HasLocation       bool           `json:"has_location"`
	HasMedia          bool           `json:"has_media"`
	Deployed          bool           `json:"deployment_status"`
	CreatedAt         string         `json:"created_at,omitempty"`
	ModifiedAt        string         `json:"modified_at,omitempty"`
}

// Summarize computes aggregate statistics over the schema's questions.
func (s *Schema) Summarize() Summary {
	types := make(map[string]int)
	required := 0
	choice := 0
	for i := range s.Questions {
		q := &s.Questions[i]
		types[string(q.Type)]++
		if q.Required {
			required++
		}
		if q.Type == TypeSingleChoice || q.Type == TypeMultipleChoice {
			choice++
		}
	}
	return Summary{
		FormID:            s.FormID,
		FormName:          s.FormName,
		TotalQuestions:    len(s.Questions),
		RequiredQuestions: required,
		OptionalQuestions: len(s.Questions) - required,
		ChoiceQuestions:   choice,
		QuestionTypes:     types,
		HasLocation:       types[string(TypeLocation)] > 0,
		HasMedia:          types[string(TypePhoto)] > 0 || types[string(TypeAudio)] > 0 || types[string(TypeVideo)] > 0,
		Deployed:          s.Deployed,
		CreatedAt:         s.CreatedAt,
		ModifiedAt:        s.ModifiedAt,
	}
}
