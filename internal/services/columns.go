package services

import (
	"strconv"
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
)

const questionSheet = "Questions"

// Spreadsheet column names. Lookups are case-sensitive.
const (
	ColPart           = "part"
	ColQuestionText   = "question_text"
	ColChoiceA        = "choice_a"
	ColChoiceB        = "choice_b"
	ColChoiceC        = "choice_c"
	ColChoiceD        = "choice_d"
	ColCorrectChoice  = "correct_choice"
	ColExplanationVI  = "explanation_vi"
	ColExplanationEN  = "explanation_en"
	ColTags           = "tags"
	ColDifficulty     = "difficulty"
	ColStatus         = "status"
	ColPassageID      = "passage_id"
	ColPassageTitle   = "passage_title"
	ColPassageContent = "passage_content"
	ColBlankIndex     = "blank_index"
	ColAudioURL       = "audio_url"
	ColTranscript     = "transcript"
	ColImageURL       = "image_url"

	// accepted alternates
	ColQuestionAlias = "question"
	ColAnswerAlias   = "answer"
)

// QuestionColumns is the column order of the template and of exports
var QuestionColumns = []string{
	ColPart, ColQuestionText,
	ColChoiceA, ColChoiceB, ColChoiceC, ColChoiceD, ColCorrectChoice,
	ColExplanationVI, ColExplanationEN,
	ColTags, ColDifficulty, ColStatus,
	ColPassageID, ColPassageTitle, ColPassageContent, ColBlankIndex,
	ColAudioURL, ColTranscript, ColImageURL,
}

// sheetRow is one spreadsheet row keyed by header name
type sheetRow map[string]string

// values lays the row out in QuestionColumns order
func (r sheetRow) values() []interface{} {
	out := make([]interface{}, len(QuestionColumns))
	for i, col := range QuestionColumns {
		out[i] = r[col]
	}
	return out
}

func (r sheetRow) strings() []string {
	out := make([]string, len(QuestionColumns))
	for i, col := range QuestionColumns {
		out[i] = r[col]
	}
	return out
}

// questionToRow renders a stored question in the import layout
func questionToRow(q *models.Question) sheetRow {
	row := sheetRow{
		ColPart:          strconv.Itoa(int(q.Part)),
		ColQuestionText:  q.QuestionText,
		ColChoiceA:       q.ChoiceA,
		ColChoiceB:       q.ChoiceB,
		ColChoiceC:       q.ChoiceC,
		ColChoiceD:       q.ChoiceD,
		ColCorrectChoice: q.CorrectChoice,
		ColExplanationVI: q.ExplanationVI,
		ColExplanationEN: q.ExplanationEN,
		ColTags:          strings.Join(decodeTags(q.Tags), ","),
		ColDifficulty:    string(q.Difficulty),
		ColStatus:        string(q.Status),
		ColPassageID:     deref(q.PassageID),
		ColAudioURL:      deref(q.AudioURL),
		ColTranscript:    deref(q.Transcript),
		ColImageURL:      deref(q.ImageURL),
	}
	if q.BlankIndex != nil {
		row[ColBlankIndex] = strconv.Itoa(*q.BlankIndex)
	}
	if q.Passage != nil {
		row[ColPassageTitle] = q.Passage.Title
		row[ColPassageContent] = q.Passage.Content
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
