package models

type ValidationStatus string

const (
	RecordPending  ValidationStatus = "pending"
	RecordValid    ValidationStatus = "valid"
	RecordInvalid  ValidationStatus = "invalid"
	RecordImported ValidationStatus = "imported"
)

// ImportedQuestionRecord is the staging form of one spreadsheet row. It lives
// only for one upload-review-import cycle.
type ImportedQuestionRecord struct {
	RowNumber     int             `json:"row_number"`
	Part          Part            `json:"part"`
	QuestionText  string          `json:"question_text"`
	ChoiceA       string          `json:"choice_a"`
	ChoiceB       string          `json:"choice_b"`
	ChoiceC       string          `json:"choice_c"`
	ChoiceD       string          `json:"choice_d"`
	CorrectChoice string          `json:"correct_choice"`
	ExplanationVI string          `json:"explanation_vi"`
	ExplanationEN string          `json:"explanation_en"`
	Tags          []string        `json:"tags"`
	Difficulty    DifficultyLevel `json:"difficulty"`
	Status        QuestionStatus  `json:"status"`

	PassageID  string `json:"passage_id,omitempty"`
	BlankIndex *int   `json:"blank_index,omitempty"`
	AudioURL   string `json:"audio_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	Transcript string `json:"transcript,omitempty"`

	ValidationStatus ValidationStatus `json:"validation_status"`
	Errors           []string         `json:"errors"`
}

// Clone returns a deep copy so snapshots never share slices with the session
func (r *ImportedQuestionRecord) Clone() ImportedQuestionRecord {
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Errors != nil {
		c.Errors = append([]string(nil), r.Errors...)
	}
	if r.BlankIndex != nil {
		idx := *r.BlankIndex
		c.BlankIndex = &idx
	}
	return c
}

func (r *ImportedQuestionRecord) HasPassage() bool {
	return r.PassageID != ""
}
