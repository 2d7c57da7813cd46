package dto

import (
	"encoding/json"
	"fmt"
	"time"
)

type TestCaseDTO struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// CandidateQuestionDTO is a question as shown to a candidate. Only the fields
// whitelisted for the question's type are populated; the answer key never is.
type CandidateQuestionDTO struct {
	ID                   uint          `json:"id"`
	Type                 string        `json:"type"`
	Content              string        `json:"content"`
	CodeSnippet          *string       `json:"code_snippet,omitempty"`
	Options              []string      `json:"options,omitempty"`
	TestCases            []TestCaseDTO `json:"test_cases,omitempty"`
	EvaluationGuidelines *string       `json:"evaluation_guidelines,omitempty"`
	ImageURL             *string       `json:"image_url,omitempty"`
	Points               int           `json:"points"`
	Order                int           `json:"order"`
}

type SessionViewDTO struct {
	CandidateID     uint                   `json:"candidate_id"`
	CandidateName   string                 `json:"candidate_name"`
	Status          string                 `json:"status"`
	TestTitle       string                 `json:"test_title"`
	TestDescription string                 `json:"test_description,omitempty"`
	Duration        int                    `json:"duration"`
	StartedAt       *time.Time             `json:"started_at"`
	Questions       []CandidateQuestionDTO `json:"questions"`
}

type StartResponseDTO struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type SessionStatusDTO struct {
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Score         *int       `json:"score,omitempty"`
	AutoSubmitted bool       `json:"auto_submitted"`
}

// RecordResponseDTO saves one answer. An empty Response clears prior credit.
// question_id is accepted as an alias of questionId.
type RecordResponseDTO struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Response   string `json:"response"`
}

func (r *RecordResponseDTO) UnmarshalJSON(data []byte) error {
	var raw struct {
		QuestionID      *uint  `json:"questionId"`
		QuestionIDSnake *uint  `json:"question_id"`
		Response        string `json:"response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Response = raw.Response
	r.QuestionID = 0
	switch {
	case raw.QuestionID != nil:
		r.QuestionID = *raw.QuestionID
	case raw.QuestionIDSnake != nil:
		r.QuestionID = *raw.QuestionIDSnake
	}
	return nil
}

type ResponseDTO struct {
	ID          uint      `json:"id"`
	QuestionID  uint      `json:"question_id"`
	Response    string    `json:"response"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmitRequestDTO is the submit body. auto_submitted is accepted as an alias of
// autoSubmitted; any other key is rejected so the flag is never silently lost.
type SubmitRequestDTO struct {
	AutoSubmitted bool `json:"autoSubmitted"`
}

func (r *SubmitRequestDTO) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.AutoSubmitted = false
	for key, value := range fields {
		switch key {
		case "autoSubmitted", "auto_submitted":
			if err := json.Unmarshal(value, &r.AutoSubmitted); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		default:
			return fmt.Errorf("unknown field %q", key)
		}
	}
	return nil
}

type SubmitResultDTO struct {
	Score       int `json:"score"`
	TotalScore  int `json:"total_score"`
	TotalPoints int `json:"total_points"`
}

const (
	IntegrityVisibilityHidden = "visibility_hidden"
	IntegrityFullscreenExit   = "fullscreen_exit"
)

type IntegrityEventDTO struct {
	Kind  string `json:"kind" binding:"required,oneof=visibility_hidden fullscreen_exit"`
	Count int    `json:"count" binding:"min=0"`
}
