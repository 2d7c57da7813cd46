package model

import (
	"time"
)

// Response is the single stored answer of a candidate to a question.
// (CandidateID, QuestionID) is unique; writes go through an upsert.
type Response struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CandidateID uint      `json:"candidate_id" gorm:"not null;uniqueIndex:idx_response_candidate_question"`
	QuestionID  uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_response_candidate_question"`
	Response    string    `json:"response" gorm:"type:text;not null"`
	IsCorrect   *bool     `json:"is_correct"`
	Points      int       `json:"points" gorm:"not null;default:0"`
	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
