package dto

import "time"

// QuestionCreateDTO is used within TestCreateDTO for admin test creation.
// Answer is the index of the correct option for choice and pattern questions.
type QuestionCreateDTO struct {
	Type                 string        `json:"type" binding:"required,oneof=multipleChoice coding subjective patternRecognition"`
	Content              string        `json:"content" binding:"required"`
	CodeSnippet          *string       `json:"code_snippet"`
	Options              []string      `json:"options"`
	Answer               *int          `json:"answer"`
	TestCases            []TestCaseDTO `json:"test_cases"`
	EvaluationGuidelines *string       `json:"evaluation_guidelines"`
	ImageURL             *string       `json:"image_url"`
	Points               int           `json:"points" binding:"omitempty,min=1"`
	Order                int           `json:"order" binding:"min=0"`
}

// TestCreateDTO is for an agency to create a new test with all its questions.
type TestCreateDTO struct {
	Title            string              `json:"title" binding:"required"`
	Description      string              `json:"description,omitempty"`
	Duration         int                 `json:"duration" binding:"required,min=1"`
	PassingScore     *int                `json:"passing_score" binding:"omitempty,min=0,max=100"`
	ShuffleQuestions bool                `json:"shuffle_questions"`
	Questions        []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// QuestionDetailDTO is the authoring view of a question, answer key included.
type QuestionDetailDTO struct {
	ID                   uint          `json:"id"`
	Type                 string        `json:"type"`
	Content              string        `json:"content"`
	CodeSnippet          *string       `json:"code_snippet,omitempty"`
	Options              []string      `json:"options,omitempty"`
	Answer               *string       `json:"answer,omitempty"`
	TestCases            []TestCaseDTO `json:"test_cases,omitempty" copier:"-"`
	EvaluationGuidelines *string       `json:"evaluation_guidelines,omitempty"`
	ImageURL             *string       `json:"image_url,omitempty"`
	Points               int           `json:"points"`
	Order                int           `json:"order"`
}

type TestDetailDTO struct {
	ID               uint                `json:"id"`
	Title            string              `json:"title"`
	Description      string              `json:"description,omitempty"`
	Duration         int                 `json:"duration"`
	PassingScore     *int                `json:"passing_score,omitempty"`
	ShuffleQuestions bool                `json:"shuffle_questions"`
	Questions        []QuestionDetailDTO `json:"questions" copier:"-"`
	CreatedAt        time.Time           `json:"created_at"`
}

// TestSummaryDTO is used for listing tests.
type TestSummaryDTO struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Duration      int       `json:"duration"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type InviteCandidateDTO struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// BulkInviteDTO invites many candidates at once. Rows are validated one by one
// so a bad row does not reject the batch.
type BulkInviteDTO struct {
	Candidates []InviteCandidateDTO `json:"candidates" binding:"required,min=1,max=500"`
}

type BulkInviteRowDTO struct {
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Candidate *CandidateDTO `json:"candidate,omitempty"`
}

type BulkInviteResultDTO struct {
	Invited int                `json:"invited"`
	Failed  int                `json:"failed"`
	Results []BulkInviteRowDTO `json:"results"`
}

type CandidateDTO struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	TestID        uint       `json:"test_id"`
	TestLink      string     `json:"test_link"`
	Status        string     `json:"status"`
	InvitedAt     time.Time  `json:"invited_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Score         *int       `json:"score,omitempty"`
	AutoSubmitted bool       `json:"auto_submitted"`
}

type TestStatsDTO struct {
	TestID          uint     `json:"test_id"`
	TotalCandidates int      `json:"total_candidates"`
	Completed       int      `json:"completed"`
	InProgress      int      `json:"in_progress"`
	Pending         int      `json:"pending"`
	AverageScore    float64  `json:"average_score"`
	PassRate        *float64 `json:"pass_rate,omitempty"`
}
