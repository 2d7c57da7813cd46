// Package memory is a map-backed implementation of the repository interfaces,
// selected with STORE_DRIVER=memory and used by service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lshigami/codescreen/internal/apperrors"
	"github.com/lshigami/codescreen/internal/model"
	"github.com/lshigami/codescreen/internal/repository"
)

type responseKey struct {
	candidateID uint
	questionID  uint
}

// Store holds every entity behind one lock so conditional writes are atomic.
type Store struct {
	mu sync.RWMutex

	tests      map[uint]model.Test
	questions  map[uint]model.Question
	candidates map[uint]model.Candidate
	links      map[string]uint
	responses  map[responseKey]model.Response

	nextTestID      uint
	nextQuestionID  uint
	nextCandidateID uint
	nextResponseID  uint

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		tests:      make(map[uint]model.Test),
		questions:  make(map[uint]model.Question),
		candidates: make(map[uint]model.Candidate),
		links:      make(map[string]uint),
		responses:  make(map[responseKey]model.Response),
		now:        time.Now,
	}
}

func (s *Store) Tests() repository.TestRepository           { return &testRepo{s} }
func (s *Store) Questions() repository.QuestionRepository   { return &questionRepo{s} }
func (s *Store) Candidates() repository.CandidateRepository { return &candidateRepo{s} }
func (s *Store) Responses() repository.ResponseRepository   { return &responseRepo{s} }

func cloneQuestion(q model.Question) model.Question {
	if q.Options != nil {
		q.Options = append(model.StringArray(nil), q.Options...)
	}
	if q.TestCases != nil {
		q.TestCases = append(q.TestCases[:0:0], q.TestCases...)
	}
	return q
}

func cloneCandidate(c model.Candidate) model.Candidate {
	if c.StartedAt != nil {
		t := *c.StartedAt
		c.StartedAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		c.CompletedAt = &t
	}
	if c.Score != nil {
		v := *c.Score
		c.Score = &v
	}
	c.Responses = nil
	return c
}

func cloneResponse(r model.Response) model.Response {
	if r.IsCorrect != nil {
		v := *r.IsCorrect
		r.IsCorrect = &v
	}
	return r
}

func (s *Store) sortedQuestions(testID uint) []model.Question {
	var out []model.Question
	for _, q := range s.questions {
		if q.TestID == testID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type testRepo struct{ s *Store }

func (r *testRepo) Create(_ context.Context, test *model.Test) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextTestID++
	test.ID = s.nextTestID
	test.CreatedAt, test.UpdatedAt = now, now
	for i := range test.Questions {
		q := &test.Questions[i]
		s.nextQuestionID++
		q.ID = s.nextQuestionID
		q.TestID = test.ID
		if q.Points == 0 {
			q.Points = 1
		}
		q.CreatedAt, q.UpdatedAt = now, now
		s.questions[q.ID] = cloneQuestion(*q)
	}
	stored := *test
	stored.Questions = nil
	s.tests[test.ID] = stored
	return nil
}

func (r *testRepo) FindByID(_ context.Context, id uint) (*model.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (r *testRepo) FindByIDWithQuestions(_ context.Context, id uint) (*model.Test, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	t.Questions = r.s.sortedQuestions(id)
	return &t, nil
}

func (r *testRepo) FindAllWithQuestionCount(_ context.Context) ([]repository.TestWithQuestionCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.TestWithQuestionCount, 0, len(r.s.tests))
	for _, t := range r.s.tests {
		out = append(out, repository.TestWithQuestionCount{
			Test:          t,
			QuestionCount: len(r.s.sortedQuestions(t.ID)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type questionRepo struct{ s *Store }

func (r *questionRepo) FindByID(_ context.Context, id uint) (*model.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.questions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	q = cloneQuestion(q)
	return &q, nil
}

func (r *questionRepo) FindByTestID(_ context.Context, testID uint) ([]model.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedQuestions(testID), nil
}

type candidateRepo struct{ s *Store }

func (r *candidateRepo) Create(_ context.Context, candidate *model.Candidate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.links[candidate.TestLink]; taken {
		return apperrors.ErrValidation
	}
	now := s.now()
	s.nextCandidateID++
	candidate.ID = s.nextCandidateID
	if candidate.Status == "" {
		candidate.Status = model.StatusPending
	}
	candidate.CreatedAt, candidate.UpdatedAt = now, now
	s.candidates[candidate.ID] = cloneCandidate(*candidate)
	s.links[candidate.TestLink] = candidate.ID
	return nil
}

func (r *candidateRepo) FindByID(_ context.Context, id uint) (*model.Candidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.candidates[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c = cloneCandidate(c)
	return &c, nil
}

func (r *candidateRepo) FindByTestLink(ctx context.Context, testLink string) (*model.Candidate, error) {
	r.s.mu.RLock()
	id, ok := r.s.links[testLink]
	r.s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *candidateRepo) filter(keep func(model.Candidate) bool) []model.Candidate {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Candidate
	for _, c := range r.s.candidates {
		if keep(c) {
			out = append(out, cloneCandidate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *candidateRepo) FindByTest(_ context.Context, testID uint) ([]model.Candidate, error) {
	out := r.filter(func(c model.Candidate) bool { return c.TestID == testID })
	// newest invitation first, like the SQL store
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *candidateRepo) FindInProgress(_ context.Context) ([]model.Candidate, error) {
	return r.filter(func(c model.Candidate) bool { return c.Status == model.StatusInProgress }), nil
}

func (r *candidateRepo) MarkStarted(_ context.Context, id uint, at time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if c.Status != model.StatusPending {
		return false, nil
	}
	c.Status = model.StatusInProgress
	c.StartedAt = &at
	c.UpdatedAt = s.now()
	s.candidates[id] = c
	return true, nil
}

func (r *candidateRepo) MarkCompleted(_ context.Context, id uint, completion model.Completion) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return false, apperrors.ErrNotFound
	}
	if c.Status == model.StatusCompleted {
		return false, nil
	}
	completedAt := completion.CompletedAt
	score := completion.Score
	c.Status = model.StatusCompleted
	c.CompletedAt = &completedAt
	c.AutoSubmitted = completion.AutoSubmitted
	c.Score = &score
	if c.StartedAt == nil {
		c.StartedAt = &completedAt
	}
	c.UpdatedAt = s.now()
	s.candidates[id] = c
	return true, nil
}

type responseRepo struct{ s *Store }

func (r *responseRepo) Upsert(_ context.Context, response *model.Response) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := responseKey{response.CandidateID, response.QuestionID}
	now := s.now()
	existing, found := s.responses[key]
	if found {
		existing.Response = response.Response
		existing.IsCorrect = response.IsCorrect
		existing.Points = response.Points
		existing.SubmittedAt = response.SubmittedAt
		existing.UpdatedAt = now
	} else {
		s.nextResponseID++
		existing = *response
		existing.ID = s.nextResponseID
		existing.CreatedAt, existing.UpdatedAt = now, now
	}
	existing = cloneResponse(existing)
	s.responses[key] = existing
	*response = cloneResponse(existing)
	return !found, nil
}

func (r *responseRepo) FindByCandidate(_ context.Context, candidateID uint) ([]model.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Response
	for key, resp := range r.s.responses {
		if key.candidateID == candidateID {
			out = append(out, cloneResponse(resp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (r *responseRepo) FindByCandidateAndQuestion(_ context.Context, candidateID, questionID uint) (*model.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	resp, ok := r.s.responses[responseKey{candidateID, questionID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	resp = cloneResponse(resp)
	return &resp, nil
}
