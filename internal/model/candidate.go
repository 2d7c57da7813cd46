package model

import (
	"time"

	"gorm.io/gorm"
)

type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Candidate is one invited candidate's session for one test, addressed by TestLink.
type Candidate struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Name          string         `json:"name" gorm:"not null"`
	Email         string         `json:"email" gorm:"not null"`
	TestID        uint           `json:"test_id" gorm:"not null;index"`
	Test          Test           `json:"test,omitempty" gorm:"foreignKey:TestID"`
	TestLink      string         `json:"test_link" gorm:"not null;uniqueIndex"`
	Status        SessionStatus  `json:"status" gorm:"not null;default:'pending';index"`
	InvitedAt     time.Time      `json:"invited_at"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Score         *int           `json:"score,omitempty"`
	AutoSubmitted bool           `json:"auto_submitted" gorm:"default:false"`
	Responses     []Response     `json:"responses,omitempty" gorm:"foreignKey:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Candidate) IsCompleted() bool {
	return c.Status == StatusCompleted
}

// Completion is the terminal write applied exactly once per candidate.
type Completion struct {
	CompletedAt   time.Time
	AutoSubmitted bool
	Score         int
}
