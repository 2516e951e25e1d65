package services

import (
	"encoding/json"
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"gorm.io/datatypes"
)

// recordToQuestion converts a staged row into the stored shape. The audio
// URL follows the part's audio policy: listening parts with their own clip
// keep it, the rest get none at question level.
func recordToQuestion(rec *models.ImportedQuestionRecord, userID string) *models.Question {
	q := &models.Question{
		Part:          rec.Part,
		QuestionText:  rec.QuestionText,
		ChoiceA:       rec.ChoiceA,
		ChoiceB:       rec.ChoiceB,
		ChoiceC:       rec.ChoiceC,
		ChoiceD:       rec.ChoiceD,
		CorrectChoice: strings.ToUpper(strings.TrimSpace(rec.CorrectChoice)),
		ExplanationVI: rec.ExplanationVI,
		ExplanationEN: rec.ExplanationEN,
		Tags:          encodeTags(rec.Tags),
		Difficulty:    rec.Difficulty,
		Status:        rec.Status,
		PassageID:     optional(rec.PassageID),
		ImageURL:      optional(rec.ImageURL),
		Transcript:    optional(rec.Transcript),
		CreatedBy:     userID,
	}

	if rec.BlankIndex != nil {
		idx := *rec.BlankIndex
		q.BlankIndex = &idx
	}

	if rec.Part.Spec().Audio == models.AudioIndividual {
		q.AudioURL = optional(rec.AudioURL)
	}

	return q
}

func encodeTags(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	return datatypes.JSON(data)
}

func decodeTags(raw datatypes.JSON) []string {
	var tags []string
	if len(raw) == 0 {
		return tags
	}
	_ = json.Unmarshal(raw, &tags)
	return tags
}
