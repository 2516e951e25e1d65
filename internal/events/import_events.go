package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of import events
type EventType string

const (
	EventImportValidated EventType = "import.validated"
	EventImportCompleted EventType = "import.completed"
	EventImportFailed    EventType = "import.failed"
)

const (
	eventSource  = "toeic-import-service"
	eventVersion = "1.0"
)

// ImportEvent is the envelope of every import lifecycle event
type ImportEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ImportValidatedEvent is emitted after an uploaded file was parsed and validated
type ImportValidatedEvent struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	FileName     string `json:"file_name"`
	TotalRows    int    `json:"total_rows"`
	ValidCount   int    `json:"valid_count"`
	InvalidCount int    `json:"invalid_count"`
}

// ImportFinishedEvent is emitted once a commit ends, successfully or not
type ImportFinishedEvent struct {
	SessionID     string  `json:"session_id"`
	UserID        string  `json:"user_id"`
	ImportedCount int     `json:"imported_count"`
	InvalidCount  int     `json:"invalid_count"`
	Progress      float64 `json:"progress"`
	Error         string  `json:"error,omitempty"`
}

// NewImportEvent wraps a payload in an event envelope
func NewImportEvent(eventType EventType, data interface{}) *ImportEvent {
	return &ImportEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}
