package service

// Live feed event types published per test.
const (
	EventSessionStarted     = "session.started"
	EventResponseRecorded   = "response.recorded"
	EventSessionCompleted   = "session.completed"
	EventIntegrityViolation = "integrity.violation"
)

// EventPublisher fans session events out to agencies watching a test.
// Publish must not block the caller.
type EventPublisher interface {
	Publish(testID uint, eventType string, data interface{})
}

type noopPublisher struct{}

func NewNoopPublisher() EventPublisher { return noopPublisher{} }

func (noopPublisher) Publish(uint, string, interface{}) {}

type SessionStartedEvent struct {
	CandidateID uint   `json:"candidate_id"`
	Name        string `json:"name"`
	StartedAt   string `json:"started_at"`
}

type ResponseRecordedEvent struct {
	CandidateID uint `json:"candidate_id"`
	QuestionID  uint `json:"question_id"`
	Created     bool `json:"created"`
}

type SessionCompletedEvent struct {
	CandidateID   uint `json:"candidate_id"`
	Score         int  `json:"score"`
	AutoSubmitted bool `json:"auto_submitted"`
}

type IntegrityViolationEvent struct {
	CandidateID uint   `json:"candidate_id"`
	Kind        string `json:"kind"`
	Count       int    `json:"count"`
}
