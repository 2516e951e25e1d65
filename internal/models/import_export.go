package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportJobStatus string

const (
	ImportPending   ImportJobStatus = "pending"
	ImportValidated ImportJobStatus = "validated"
	ImportRunning   ImportJobStatus = "importing"
	ImportCompleted ImportJobStatus = "completed"
	ImportFailed    ImportJobStatus = "failed"
)

// ImportJob is the persisted history of one import session
type ImportJob struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"` // session ID
	UserID string `json:"user_id" gorm:"not null;index;size:255"`

	// File info
	FileName string `json:"file_name" gorm:"not null;size:255"`
	FileType string `json:"file_type" gorm:"not null;size:20"` // xlsx, csv
	FileSize int64  `json:"file_size" gorm:"not null"`

	// Job status
	Status   ImportJobStatus `json:"status" gorm:"default:pending;index"`
	Progress float64         `json:"progress" gorm:"default:0"` // 0-100

	// Processing info
	TotalRows     int `json:"total_rows"`
	ValidCount    int `json:"valid_count"`
	InvalidCount  int `json:"invalid_count"`
	ImportedCount int `json:"imported_count"`

	// Results
	Errors    datatypes.JSON `json:"errors" gorm:"type:jsonb"` // []ImportValidationError
	LastError *string        `json:"last_error" gorm:"type:text"`

	// Timestamps
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ImportValidationError struct {
	Row      int      `json:"row"`
	Part     Part     `json:"part"`
	Messages []string `json:"messages"`
}

// ImportSummary aggregates record counts of a session
type ImportSummary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Imported int `json:"imported"`
}

// Summarize counts records by validation status
func Summarize(records []ImportedQuestionRecord) ImportSummary {
	summary := ImportSummary{Total: len(records)}
	for i := range records {
		switch records[i].ValidationStatus {
		case RecordValid:
			summary.Valid++
		case RecordInvalid:
			summary.Invalid++
		case RecordImported:
			summary.Imported++
		}
	}
	return summary
}

// CollectValidationErrors extracts per-row errors for persistence
func CollectValidationErrors(records []ImportedQuestionRecord) []ImportValidationError {
	var out []ImportValidationError
	for i := range records {
		if len(records[i].Errors) == 0 {
			continue
		}
		out = append(out, ImportValidationError{
			Row:      records[i].RowNumber,
			Part:     records[i].Part,
			Messages: records[i].Errors,
		})
	}
	return out
}

// ImportResult is what the commit call reports back to the dashboard
type ImportResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func NewImportResult(count int, err error) ImportResult {
	if err != nil {
		return ImportResult{Success: false, Error: err.Error()}
	}
	return ImportResult{Success: true, Count: &count}
}
