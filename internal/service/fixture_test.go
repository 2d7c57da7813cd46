package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/repository/memory"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	testID    uint
	eventType string
	data      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(testID uint, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{testID, eventType, data})
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	events   *recordingPublisher
	sessions SessionService
	admin    AdminTestService
	reaper   *Reaper
	cfg      *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Reaper: config.Reaper{
			Interval:      time.Minute,
			GracePeriod:   5 * time.Minute,
			SubmitTimeout: time.Second,
			Concurrency:   4,
		},
		Session: config.Session{TestLinkBytes: 16},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		clock:  newFakeClock(),
		events: &recordingPublisher{},
		cfg:    testConfig(),
	}
	scoring := NewScoringService()
	f.sessions = NewSessionService(
		f.store.Tests(), f.store.Questions(), f.store.Candidates(), f.store.Responses(),
		scoring, f.events, f.clock,
	)
	f.admin = NewAdminTestService(f.cfg, f.store.Tests(), f.store.Candidates(), NewLogNotifier(), f.clock)
	f.reaper = NewReaper(f.cfg, f.store.Candidates(), f.store.Tests(), f.sessions, f.clock)
	return f
}

func intPtr(i int) *int { return &i }

// sampleTest has one question of every type; the choice question is worth 1,
// the pattern question 3 and the coding question 10.
func sampleTest() dto.TestCreateDTO {
	return dto.TestCreateDTO{
		Title:        "Go backend screening",
		Description:  "Timed assessment",
		Duration:     30,
		PassingScore: intPtr(50),
		Questions: []dto.QuestionCreateDTO{
			{Type: "multipleChoice", Content: "Which keyword starts a goroutine?", Options: []string{"defer", "go", "chan"}, Answer: intPtr(1), Points: 1, Order: 1},
			{Type: "patternRecognition", Content: "Next shape?", Options: []string{"a", "b", "c"}, Answer: intPtr(2), Points: 3, Order: 2, ImageURL: strPtr("https://cdn.example.com/p.png")},
			{Type: "coding", Content: "Reverse a string", Points: 10, Order: 3, TestCases: []dto.TestCaseDTO{{Input: "ab", Output: "ba"}}},
			{Type: "subjective", Content: "Describe a race condition", Order: 4, EvaluationGuidelines: strPtr("Mentions shared state")},
		},
	}
}

func (f *fixture) createTest(t *testing.T, req dto.TestCreateDTO) *dto.TestDetailDTO {
	t.Helper()
	test, err := f.admin.CreateTest(context.Background(), req)
	require.NoError(t, err)
	return test
}

func (f *fixture) invite(t *testing.T, testID uint) *dto.CandidateDTO {
	t.Helper()
	c, err := f.admin.InviteCandidate(context.Background(), testID, dto.InviteCandidateDTO{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	return c
}

// startedSession creates the sample test, invites a candidate and starts the session.
func (f *fixture) startedSession(t *testing.T) (*dto.TestDetailDTO, *dto.CandidateDTO) {
	t.Helper()
	test := f.createTest(t, sampleTest())
	candidate := f.invite(t, test.ID)
	_, err := f.sessions.Start(context.Background(), candidate.TestLink)
	require.NoError(t, err)
	return test, candidate
}
