package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type QuestionStatus string

const (
	QuestionDraft     QuestionStatus = "draft"
	QuestionPublished QuestionStatus = "published"
	QuestionArchived  QuestionStatus = "archived"
)

type Question struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	Part          Part            `json:"part" gorm:"not null;index"`
	QuestionText  string          `json:"question_text" gorm:"type:text"`
	ChoiceA       string          `json:"choice_a" gorm:"type:text"`
	ChoiceB       string          `json:"choice_b" gorm:"type:text"`
	ChoiceC       string          `json:"choice_c" gorm:"type:text"`
	ChoiceD       string          `json:"choice_d" gorm:"type:text"`
	CorrectChoice string          `json:"correct_choice" gorm:"not null;size:1"`
	ExplanationVI string          `json:"explanation_vi" gorm:"type:text"`
	ExplanationEN string          `json:"explanation_en" gorm:"type:text"`
	Tags          datatypes.JSON  `json:"tags" gorm:"type:jsonb"`
	Difficulty    DifficultyLevel `json:"difficulty" gorm:"default:medium;index"`
	Status        QuestionStatus  `json:"status" gorm:"default:draft;index"`

	PassageID  *string `json:"passage_id" gorm:"size:36;index"`
	BlankIndex *int    `json:"blank_index"`
	AudioURL   *string `json:"audio_url" gorm:"size:500"`
	ImageURL   *string `json:"image_url" gorm:"size:500"`
	Transcript *string `json:"transcript" gorm:"type:text"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Passage *Passage `json:"passage,omitempty" gorm:"foreignKey:PassageID"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// Passage is a shared text/audio block referenced by parts 3, 4, 6 and 7
type Passage struct {
	ID         string  `json:"id" gorm:"primaryKey;size:36"`
	Part       Part    `json:"part" gorm:"not null;index"`
	Title      string  `json:"title" gorm:"not null;size:255"`
	Content    string  `json:"content" gorm:"type:text"`
	AudioURL   *string `json:"audio_url" gorm:"size:500"`
	ImageURL   *string `json:"image_url" gorm:"size:500"`
	Transcript *string `json:"transcript" gorm:"type:text"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *Passage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
