package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/codescreen/internal/apperrors"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/model"
	"github.com/lshigami/codescreen/internal/repository"
	"github.com/rs/zerolog/log"
)

// SessionService drives a candidate's session: pending -> in_progress -> completed.
type SessionService interface {
	Start(ctx context.Context, testLink string) (*dto.StartResponseDTO, error)
	GetSessionView(ctx context.Context, testLink string) (*dto.SessionViewDTO, error)
	GetStatus(ctx context.Context, testLink string) (*dto.SessionStatusDTO, error)
	GetResponse(ctx context.Context, testLink string, questionID uint) (*dto.ResponseDTO, error)
	// RecordResponse upserts the candidate's answer and reports whether it was newly created.
	RecordResponse(ctx context.Context, testLink string, req dto.RecordResponseDTO) (*dto.ResponseDTO, bool, error)
	Submit(ctx context.Context, testLink string, autoSubmitted bool) (*dto.SubmitResultDTO, error)
	// SubmitCandidate scores and completes the session. Concurrent callers race on a
	// conditional write; every loser gets apperrors.ErrAlreadyCompleted.
	SubmitCandidate(ctx context.Context, candidate *model.Candidate, autoSubmitted bool) (*dto.SubmitResultDTO, error)
	ReportIntegrity(ctx context.Context, testLink string, event dto.IntegrityEventDTO) error
}

type sessionService struct {
	testRepo      repository.TestRepository
	questionRepo  repository.QuestionRepository
	candidateRepo repository.CandidateRepository
	responseRepo  repository.ResponseRepository
	scoring       ScoringService
	events        EventPublisher
	clock         Clock
}

func NewSessionService(
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	candidateRepo repository.CandidateRepository,
	responseRepo repository.ResponseRepository,
	scoring ScoringService,
	events EventPublisher,
	clock Clock,
) SessionService {
	return &sessionService{
		testRepo:      testRepo,
		questionRepo:  questionRepo,
		candidateRepo: candidateRepo,
		responseRepo:  responseRepo,
		scoring:       scoring,
		events:        events,
		clock:         clock,
	}
}

func (s *sessionService) candidateByLink(ctx context.Context, testLink string) (*model.Candidate, error) {
	candidate, err := s.candidateRepo.FindByTestLink(ctx, testLink)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Error().Err(err).Str("testLink", testLink).Msg("candidateByLink: store lookup failed")
		}
		return nil, fmt.Errorf("candidate for link: %w", err)
	}
	return candidate, nil
}

// Start is the only transition into in_progress. Calling it again is a no-op
// returning the original start time.
func (s *sessionService) Start(ctx context.Context, testLink string) (*dto.StartResponseDTO, error) {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return nil, err
	}

	switch candidate.Status {
	case model.StatusCompleted:
		return nil, apperrors.ErrAlreadyCompleted
	case model.StatusInProgress:
		return &dto.StartResponseDTO{Status: string(candidate.Status), StartedAt: *candidate.StartedAt}, nil
	}

	now := s.clock.Now()
	started, err := s.candidateRepo.MarkStarted(ctx, candidate.ID, now)
	if err != nil {
		log.Error().Err(err).Uint("candidateID", candidate.ID).Msg("Start: failed to mark session started")
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if !started {
		// Lost to a concurrent start or submit; report whatever won.
		current, err := s.candidateRepo.FindByID(ctx, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload session: %w", err)
		}
		if current.IsCompleted() {
			return nil, apperrors.ErrAlreadyCompleted
		}
		return &dto.StartResponseDTO{Status: string(current.Status), StartedAt: *current.StartedAt}, nil
	}

	log.Info().Uint("candidateID", candidate.ID).Uint("testID", candidate.TestID).Msg("Start: session started")
	s.events.Publish(candidate.TestID, EventSessionStarted, SessionStartedEvent{
		CandidateID: candidate.ID,
		Name:        candidate.Name,
		StartedAt:   now.Format(time.RFC3339),
	})
	return &dto.StartResponseDTO{Status: string(model.StatusInProgress), StartedAt: now}, nil
}

func (s *sessionService) GetSessionView(ctx context.Context, testLink string) (*dto.SessionViewDTO, error) {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return nil, err
	}
	if candidate.IsCompleted() {
		return nil, apperrors.ErrAlreadyCompleted
	}

	test, err := s.testRepo.FindByIDWithQuestions(ctx, candidate.TestID)
	if err != nil {
		log.Error().Err(err).Uint("testID", candidate.TestID).Msg("GetSessionView: test not found")
		return nil, fmt.Errorf("test %d: %w", candidate.TestID, err)
	}

	questions := make([]dto.CandidateQuestionDTO, 0, len(test.Questions))
	for i := range test.Questions {
		questions = append(questions, candidateQuestion(&test.Questions[i]))
	}
	if test.ShuffleQuestions {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	return &dto.SessionViewDTO{
		CandidateID:     candidate.ID,
		CandidateName:   candidate.Name,
		Status:          string(candidate.Status),
		TestTitle:       test.Title,
		TestDescription: test.Description,
		Duration:        test.Duration,
		StartedAt:       candidate.StartedAt,
		Questions:       questions,
	}, nil
}

// candidateQuestion exposes only the payload whitelisted for the question type.
func candidateQuestion(q *model.Question) dto.CandidateQuestionDTO {
	out := dto.CandidateQuestionDTO{
		ID:          q.ID,
		Type:        string(q.Type),
		Content:     q.Content,
		CodeSnippet: q.CodeSnippet,
		Points:      q.Weight(),
		Order:       q.Order,
	}
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		out.Options = append([]string(nil), q.Options...)
	case model.QuestionTypePatternRecognition:
		out.Options = append([]string(nil), q.Options...)
		out.ImageURL = q.ImageURL
	case model.QuestionTypeCoding:
		for _, tc := range q.TestCases {
			out.TestCases = append(out.TestCases, dto.TestCaseDTO{Input: tc.Input, Output: tc.Output})
		}
	case model.QuestionTypeSubjective:
		out.EvaluationGuidelines = q.EvaluationGuidelines
	}
	return out
}

func (s *sessionService) GetStatus(ctx context.Context, testLink string) (*dto.SessionStatusDTO, error) {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return nil, err
	}
	status := &dto.SessionStatusDTO{
		Status:        string(candidate.Status),
		StartedAt:     candidate.StartedAt,
		CompletedAt:   candidate.CompletedAt,
		AutoSubmitted: candidate.AutoSubmitted,
	}
	if candidate.IsCompleted() {
		status.Score = candidate.Score
	}
	return status, nil
}

func (s *sessionService) GetResponse(ctx context.Context, testLink string, questionID uint) (*dto.ResponseDTO, error) {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return nil, err
	}
	response, err := s.responseRepo.FindByCandidateAndQuestion(ctx, candidate.ID, questionID)
	if err != nil {
		return nil, fmt.Errorf("response for question %d: %w", questionID, err)
	}
	return toResponseDTO(response)
}

func toResponseDTO(response *model.Response) (*dto.ResponseDTO, error) {
	var out dto.ResponseDTO
	if err := copier.Copy(&out, response); err != nil {
		log.Error().Err(err).Msg("Failed to copy Response model to ResponseDTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	return &out, nil
}

func (s *sessionService) RecordResponse(ctx context.Context, testLink string, req dto.RecordResponseDTO) (*dto.ResponseDTO, bool, error) {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return nil, false, err
	}
	switch candidate.Status {
	case model.StatusCompleted:
		return nil, false, apperrors.ErrAlreadyCompleted
	case model.StatusPending:
		return nil, false, apperrors.ErrNotStarted
	}

	question, err := s.questionRepo.FindByID(ctx, req.QuestionID)
	if errors.Is(err, apperrors.ErrNotFound) || (err == nil && question.TestID != candidate.TestID) {
		log.Warn().Uint("candidateID", candidate.ID).Uint("questionID", req.QuestionID).Msg("RecordResponse: question does not belong to the candidate's test")
		return nil, false, apperrors.ErrInvalidQuestion
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load question %d: %w", req.QuestionID, err)
	}

	isCorrect, points := s.scoring.Grade(question, req.Response)
	response := &model.Response{
		CandidateID: candidate.ID,
		QuestionID:  question.ID,
		Response:    req.Response,
		IsCorrect:   isCorrect,
		Points:      points,
		SubmittedAt: s.clock.Now(),
	}
	created, err := s.responseRepo.Upsert(ctx, response)
	if err != nil {
		log.Error().Err(err).Uint("candidateID", candidate.ID).Uint("questionID", question.ID).Msg("RecordResponse: upsert failed")
		return nil, false, fmt.Errorf("failed to save response: %w", err)
	}

	s.events.Publish(candidate.TestID, EventResponseRecorded, ResponseRecordedEvent{
		CandidateID: candidate.ID,
		QuestionID:  question.ID,
		Created:     created,
	})

	out, err := toResponseDTO(response)
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *sessionService) Submit(ctx context.Context, testLink string, autoSubmitted bool) (*dto.SubmitResultDTO, error) {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return nil, err
	}
	return s.SubmitCandidate(ctx, candidate, autoSubmitted)
}

func (s *sessionService) SubmitCandidate(ctx context.Context, candidate *model.Candidate, autoSubmitted bool) (*dto.SubmitResultDTO, error) {
	if candidate.IsCompleted() {
		return nil, apperrors.ErrAlreadyCompleted
	}

	questions, err := s.questionRepo.FindByTestID(ctx, candidate.TestID)
	if err != nil {
		log.Error().Err(err).Uint("testID", candidate.TestID).Msg("Submit: failed to load questions")
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	responses, err := s.responseRepo.FindByCandidate(ctx, candidate.ID)
	if err != nil {
		log.Error().Err(err).Uint("candidateID", candidate.ID).Msg("Submit: failed to load responses")
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	result := s.scoring.Score(responses, questions)
	completed, err := s.candidateRepo.MarkCompleted(ctx, candidate.ID, model.Completion{
		CompletedAt:   s.clock.Now(),
		AutoSubmitted: autoSubmitted,
		Score:         result.FinalScore,
	})
	if err != nil {
		log.Error().Err(err).Uint("candidateID", candidate.ID).Msg("Submit: failed to write completion")
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	if !completed {
		log.Debug().Uint("candidateID", candidate.ID).Bool("autoSubmitted", autoSubmitted).Msg("Submit: session was already completed by another caller")
		return nil, apperrors.ErrAlreadyCompleted
	}

	log.Info().
		Uint("candidateID", candidate.ID).
		Uint("testID", candidate.TestID).
		Int("score", result.FinalScore).
		Int("totalScore", result.TotalScore).
		Int("totalPoints", result.TotalPoints).
		Bool("autoSubmitted", autoSubmitted).
		Msg("Submit: session completed")
	s.events.Publish(candidate.TestID, EventSessionCompleted, SessionCompletedEvent{
		CandidateID:   candidate.ID,
		Score:         result.FinalScore,
		AutoSubmitted: autoSubmitted,
	})

	return &dto.SubmitResultDTO{
		Score:       result.FinalScore,
		TotalScore:  result.TotalScore,
		TotalPoints: result.TotalPoints,
	}, nil
}

// ReportIntegrity records a client-side violation. It never changes session state.
func (s *sessionService) ReportIntegrity(ctx context.Context, testLink string, event dto.IntegrityEventDTO) error {
	candidate, err := s.candidateByLink(ctx, testLink)
	if err != nil {
		return err
	}
	if candidate.IsCompleted() {
		return apperrors.ErrAlreadyCompleted
	}

	log.Warn().
		Uint("candidateID", candidate.ID).
		Uint("testID", candidate.TestID).
		Str("kind", event.Kind).
		Int("count", event.Count).
		Msg("ReportIntegrity: integrity violation reported")
	s.events.Publish(candidate.TestID, EventIntegrityViolation, IntegrityViolationEvent{
		CandidateID: candidate.ID,
		Kind:        event.Kind,
		Count:       event.Count,
	})
	return nil
}
