package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/toeic-import-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator *validator.Validate
	recordValidator *RecordValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		recordValidator: NewRecordValidator(structValidator),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Record returns the import row validator
func (v *Validator) Record() *RecordValidator {
	return v.recordValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("toeic_part", validateToeicPart)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)
	validate.RegisterValidation("question_status", validateQuestionStatus)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateToeicPart(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return models.Part(fl.Field().Int()).IsValid()
	default:
		return false
	}
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	validLevels := []models.DifficultyLevel{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
	}

	value := fl.Field().String()
	for _, validLevel := range validLevels {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

func validateQuestionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.QuestionStatus{
		models.QuestionDraft,
		models.QuestionPublished,
		models.QuestionArchived,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

