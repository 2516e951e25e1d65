package validator

import (
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Row error messages shown to operators
const (
	MsgQuestionTextRequired = "Question text is required for Part 3 and above"
	MsgChoicesRequired      = "At least choices A and B are required for Part 3 and above"
	MsgCorrectChoicePart2   = "Part 2 correct choice must be A, B or C"
	MsgCorrectChoice        = "Correct choice must be A, B, C or D"
	MsgPartOutOfRange       = "Part must be between 1 and 7"
	MsgInvalidDifficulty    = "Difficulty must be easy, medium or hard"
	MsgInvalidStatus        = "Status must be draft, published or archived"
	MsgPassageRequired      = "Passage ID is required for Part 3, 4, 6 and 7"
	MsgBlankIndexRequired   = "Blank index is required for Part 6"
)

// RecordValidator checks staged import rows against the per-part schema
type RecordValidator struct {
	validate    *validator.Validate
	choiceRules map[models.Part]string
}

// NewRecordValidator compiles the correct-choice rule of every part once
func NewRecordValidator(validate *validator.Validate) *RecordValidator {
	rules := make(map[models.Part]string)
	for _, part := range models.Parts() {
		rules[part] = choiceRule(part.Spec())
	}
	return &RecordValidator{
		validate:    validate,
		choiceRules: rules,
	}
}

func choiceRule(spec models.PartSpec) string {
	return "required,oneof=" + strings.Join(spec.CorrectChoices, " ")
}

// Validate returns every rule violation of the record. It only reads the
// row contents, so repeated calls give the same answer.
func (v *RecordValidator) Validate(record *models.ImportedQuestionRecord) []string {
	spec := record.Part.Spec()
	errs := make([]string, 0)

	if spec.RequiresText && strings.TrimSpace(record.QuestionText) == "" {
		errs = append(errs, MsgQuestionTextRequired)
	}

	if spec.RequiresChoices &&
		(strings.TrimSpace(record.ChoiceA) == "" || strings.TrimSpace(record.ChoiceB) == "") {
		errs = append(errs, MsgChoicesRequired)
	}

	if !v.correctChoiceAllowed(spec, record.CorrectChoice) {
		if spec.Part == models.PartQuestionResponse {
			errs = append(errs, MsgCorrectChoicePart2)
		} else {
			errs = append(errs, MsgCorrectChoice)
		}
	}

	if v.validate.Var(int(record.Part), "toeic_part") != nil {
		errs = append(errs, MsgPartOutOfRange)
	}

	if v.validate.Var(string(record.Difficulty), "difficulty_level") != nil {
		errs = append(errs, MsgInvalidDifficulty)
	}

	if v.validate.Var(string(record.Status), "question_status") != nil {
		errs = append(errs, MsgInvalidStatus)
	}

	if spec.RequiresPassage && strings.TrimSpace(record.PassageID) == "" {
		errs = append(errs, MsgPassageRequired)
	}

	if spec.RequiresBlankIndex && record.BlankIndex == nil {
		errs = append(errs, MsgBlankIndexRequired)
	}

	return errs
}

// Apply validates a pending record and stores the outcome on it. Records
// already classified are left untouched.
func (v *RecordValidator) Apply(record *models.ImportedQuestionRecord) {
	if record.ValidationStatus != "" && record.ValidationStatus != models.RecordPending {
		return
	}
	record.Errors = v.Validate(record)
	if len(record.Errors) == 0 {
		record.ValidationStatus = models.RecordValid
	} else {
		record.ValidationStatus = models.RecordInvalid
	}
}

// ApplyAll classifies records and returns the summary
func (v *RecordValidator) ApplyAll(records []*models.ImportedQuestionRecord) models.ImportSummary {
	summary := models.ImportSummary{Total: len(records)}
	for _, record := range records {
		v.Apply(record)
		switch record.ValidationStatus {
		case models.RecordValid:
			summary.Valid++
		case models.RecordInvalid:
			summary.Invalid++
		case models.RecordImported:
			summary.Imported++
		}
	}
	return summary
}

func (v *RecordValidator) correctChoiceAllowed(spec models.PartSpec, choice string) bool {
	rule, ok := v.choiceRules[spec.Part]
	if !ok {
		rule = choiceRule(spec)
	}
	return v.validate.Var(strings.ToUpper(strings.TrimSpace(choice)), rule) == nil
}
