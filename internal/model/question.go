package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice     QuestionType = "multipleChoice"
	QuestionTypeCoding             QuestionType = "coding"
	QuestionTypeSubjective         QuestionType = "subjective"
	QuestionTypePatternRecognition QuestionType = "patternRecognition"
)

// AutoGradable reports whether responses can be graded by comparing against Answer.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypePatternRecognition
}

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeCoding, QuestionTypeSubjective, QuestionTypePatternRecognition:
		return true
	}
	return false
}

// TestCase is one visible input/output pair of a coding question.
type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type Question struct {
	ID                   uint                          `gorm:"primarykey" json:"id"`
	TestID               uint                          `json:"test_id" gorm:"not null;index"`
	Type                 QuestionType                  `json:"type" gorm:"not null"`
	Content              string                        `json:"content" gorm:"type:text;not null"`
	CodeSnippet          *string                       `json:"code_snippet,omitempty" gorm:"type:text"`
	Options              StringArray                   `json:"options,omitempty" gorm:"type:jsonb"`
	Answer               *string                       `json:"-"` // option index, never serialised to candidates
	TestCases            datatypes.JSONSlice[TestCase] `json:"test_cases,omitempty" gorm:"type:jsonb"`
	EvaluationGuidelines *string                       `json:"evaluation_guidelines,omitempty" gorm:"type:text"`
	ImageURL             *string                       `json:"image_url,omitempty"`
	Points               int                           `json:"points" gorm:"default:1"`
	Order                int                           `json:"order" gorm:"column:sort_order;default:0"`
	CreatedAt            time.Time                     `json:"created_at"`
	UpdatedAt            time.Time                     `json:"updated_at"`
	DeletedAt            gorm.DeletedAt                `gorm:"index" json:"-"`
}

// Weight is the question's contribution to the score denominator; unset counts as 1.
func (q *Question) Weight() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}
