package model

import (
	"time"

	"gorm.io/gorm"
)

type Test struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description,omitempty"`
	Duration         int            `json:"duration" gorm:"not null"` // minutes
	PassingScore     *int           `json:"passing_score,omitempty"`  // percentage
	ShuffleQuestions bool           `json:"shuffle_questions" gorm:"default:false"`
	Questions        []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Allowance is the nominal time a candidate has once started.
func (t *Test) Allowance() time.Duration {
	return time.Duration(t.Duration) * time.Minute
}
