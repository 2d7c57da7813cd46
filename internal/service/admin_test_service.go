package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/apperrors"
	"github.com/lshigami/codescreen/internal/dto"
	"github.com/lshigami/codescreen/internal/model"
	"github.com/lshigami/codescreen/internal/repository"
	"github.com/rs/zerolog/log"
)

type AdminTestService interface {
	CreateTest(ctx context.Context, req dto.TestCreateDTO) (*dto.TestDetailDTO, error)
	ListTests(ctx context.Context) ([]dto.TestSummaryDTO, error)
	InviteCandidate(ctx context.Context, testID uint, req dto.InviteCandidateDTO) (*dto.CandidateDTO, error)
	BulkInviteCandidates(ctx context.Context, testID uint, req dto.BulkInviteDTO) (*dto.BulkInviteResultDTO, error)
	ListCandidates(ctx context.Context, testID uint) ([]dto.CandidateDTO, error)
	GetTestStats(ctx context.Context, testID uint) (*dto.TestStatsDTO, error)
}

type adminTestService struct {
	testRepo      repository.TestRepository
	candidateRepo repository.CandidateRepository
	notifier      InvitationNotifier
	clock         Clock
	linkBytes     int
	validate      *validator.Validate
}

func NewAdminTestService(
	cfg *config.Config,
	testRepo repository.TestRepository,
	candidateRepo repository.CandidateRepository,
	notifier InvitationNotifier,
	clock Clock,
) AdminTestService {
	return &adminTestService{
		testRepo:      testRepo,
		candidateRepo: candidateRepo,
		notifier:      notifier,
		clock:         clock,
		linkBytes:     cfg.Session.TestLinkBytes,
		validate:      newRowValidator(),
	}
}

// newRowValidator checks bulk rows against the same binding tags gin applies to single invites.
func newRowValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

func validateQuestion(idx int, q dto.QuestionCreateDTO) error {
	qType := model.QuestionType(q.Type)
	if !qType.Valid() {
		return fmt.Errorf("%w: question %d has unknown type %q", apperrors.ErrValidation, idx, q.Type)
	}
	if qType.AutoGradable() {
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d of type %s needs at least 2 options", apperrors.ErrValidation, idx, q.Type)
		}
		if q.Answer == nil || *q.Answer < 0 || *q.Answer >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer must be an option index between 0 and %d", apperrors.ErrValidation, idx, len(q.Options)-1)
		}
	}
	if qType == model.QuestionTypePatternRecognition && (q.ImageURL == nil || *q.ImageURL == "") {
		return fmt.Errorf("%w: question %d of type %s requires image_url", apperrors.ErrValidation, idx, q.Type)
	}
	return nil
}

func (s *adminTestService) CreateTest(ctx context.Context, req dto.TestCreateDTO) (*dto.TestDetailDTO, error) {
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("%w: a test must have at least one question", apperrors.ErrValidation)
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, qDto := range req.Questions {
		if err := validateQuestion(i+1, qDto); err != nil {
			return nil, err
		}

		question := model.Question{
			Type:                 model.QuestionType(qDto.Type),
			Content:              qDto.Content,
			CodeSnippet:          qDto.CodeSnippet,
			EvaluationGuidelines: qDto.EvaluationGuidelines,
			ImageURL:             qDto.ImageURL,
			Points:               qDto.Points,
			Order:                qDto.Order,
		}
		if question.Points == 0 {
			question.Points = 1
		}
		if question.Order == 0 {
			question.Order = i + 1
		}
		if question.Type.AutoGradable() {
			question.Options = model.StringArray(qDto.Options)
			answer := strconv.Itoa(*qDto.Answer)
			question.Answer = &answer
		}
		if question.Type == model.QuestionTypeCoding {
			for _, tc := range qDto.TestCases {
				question.TestCases = append(question.TestCases, model.TestCase{Input: tc.Input, Output: tc.Output})
			}
		}
		questions = append(questions, question)
	}

	test := model.Test{
		Title:            req.Title,
		Description:      req.Description,
		Duration:         req.Duration,
		PassingScore:     req.PassingScore,
		ShuffleQuestions: req.ShuffleQuestions,
		Questions:        questions,
	}
	if err := s.testRepo.Create(ctx, &test); err != nil {
		log.Error().Err(err).Msg("CreateTest: failed to create test in database")
		return nil, fmt.Errorf("database error creating test: %w", err)
	}

	created, err := s.testRepo.FindByIDWithQuestions(ctx, test.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("CreateTest: failed to reload created test, answering from request data")
		created = &test
	}
	log.Info().Uint("testID", created.ID).Int("questions", len(created.Questions)).Msg("CreateTest: test created")
	return toTestDetailDTO(created)
}

func toTestDetailDTO(test *model.Test) (*dto.TestDetailDTO, error) {
	var resp dto.TestDetailDTO
	if err := copier.Copy(&resp, test); err != nil {
		log.Error().Err(err).Msg("Failed to copy Test model to TestDetailDTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	resp.Questions = make([]dto.QuestionDetailDTO, 0, len(test.Questions))
	for i := range test.Questions {
		var q dto.QuestionDetailDTO
		if err := copier.Copy(&q, &test.Questions[i]); err != nil {
			return nil, fmt.Errorf("error preparing question data: %w", err)
		}
		for _, tc := range test.Questions[i].TestCases {
			q.TestCases = append(q.TestCases, dto.TestCaseDTO{Input: tc.Input, Output: tc.Output})
		}
		resp.Questions = append(resp.Questions, q)
	}
	return &resp, nil
}

func (s *adminTestService) ListTests(ctx context.Context) ([]dto.TestSummaryDTO, error) {
	rows, err := s.testRepo.FindAllWithQuestionCount(ctx)
	if err != nil {
		log.Error().Err(err).Msg("ListTests: failed to list tests")
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	out := make([]dto.TestSummaryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.TestSummaryDTO{
			ID:            row.ID,
			Title:         row.Title,
			Description:   row.Description,
			Duration:      row.Duration,
			QuestionCount: row.QuestionCount,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out, nil
}

func (s *adminTestService) InviteCandidate(ctx context.Context, testID uint, req dto.InviteCandidateDTO) (*dto.CandidateDTO, error) {
	test, err := s.testRepo.FindByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("test %d: %w", testID, err)
	}
	return s.invite(ctx, test, req)
}

// BulkInviteCandidates invites every valid row and reports each row's outcome.
// Only a missing test or an unusable store fails the whole call.
func (s *adminTestService) BulkInviteCandidates(ctx context.Context, testID uint, req dto.BulkInviteDTO) (*dto.BulkInviteResultDTO, error) {
	test, err := s.testRepo.FindByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("test %d: %w", testID, err)
	}

	result := &dto.BulkInviteResultDTO{Results: make([]dto.BulkInviteRowDTO, 0, len(req.Candidates))}
	for i, row := range req.Candidates {
		out := dto.BulkInviteRowDTO{Name: row.Name, Email: row.Email}
		if err := s.validate.Struct(row); err != nil {
			out.Error = rowError(err)
		} else if candidate, err := s.invite(ctx, test, row); err != nil {
			if errors.Is(err, apperrors.ErrStoreUnavailable) {
				return nil, err
			}
			out.Error = err.Error()
		} else {
			out.Success = true
			out.Candidate = candidate
		}

		if out.Success {
			result.Invited++
		} else {
			result.Failed++
			log.Warn().Uint("testID", testID).Int("row", i).Str("reason", out.Error).Msg("BulkInviteCandidates: row rejected")
		}
		result.Results = append(result.Results, out)
	}

	log.Info().Uint("testID", testID).Int("invited", result.Invited).Int("failed", result.Failed).Msg("BulkInviteCandidates: done")
	return result, nil
}

func rowError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch fe := verrs[0]; fe.Tag() {
	case "required":
		return "Missing required field " + strings.ToLower(fe.Field())
	case "email":
		return "Invalid email format"
	default:
		return fmt.Sprintf("Invalid %s", strings.ToLower(fe.Field()))
	}
}

func (s *adminTestService) invite(ctx context.Context, test *model.Test, req dto.InviteCandidateDTO) (*dto.CandidateDTO, error) {
	link, err := NewTestLink(s.linkBytes)
	if err != nil {
		return nil, err
	}
	candidate := model.Candidate{
		Name:      req.Name,
		Email:     req.Email,
		TestID:    test.ID,
		TestLink:  link,
		Status:    model.StatusPending,
		InvitedAt: s.clock.Now(),
	}
	if err := s.candidateRepo.Create(ctx, &candidate); err != nil {
		log.Error().Err(err).Uint("testID", test.ID).Msg("InviteCandidate: failed to create candidate")
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	if err := s.notifier.NotifyInvitation(ctx, test, &candidate); err != nil {
		log.Warn().Err(err).Uint("candidateID", candidate.ID).Msg("InviteCandidate: invitation notification failed")
	}
	return toCandidateDTO(&candidate)
}

func toCandidateDTO(candidate *model.Candidate) (*dto.CandidateDTO, error) {
	var out dto.CandidateDTO
	if err := copier.Copy(&out, candidate); err != nil {
		log.Error().Err(err).Msg("Failed to copy Candidate model to CandidateDTO")
		return nil, fmt.Errorf("error preparing candidate data: %w", err)
	}
	return &out, nil
}

func (s *adminTestService) ListCandidates(ctx context.Context, testID uint) ([]dto.CandidateDTO, error) {
	if _, err := s.testRepo.FindByID(ctx, testID); err != nil {
		return nil, fmt.Errorf("test %d: %w", testID, err)
	}
	candidates, err := s.candidateRepo.FindByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]dto.CandidateDTO, 0, len(candidates))
	for i := range candidates {
		c, err := toCandidateDTO(&candidates[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *adminTestService) GetTestStats(ctx context.Context, testID uint) (*dto.TestStatsDTO, error) {
	test, err := s.testRepo.FindByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("test %d: %w", testID, err)
	}
	candidates, err := s.candidateRepo.FindByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	stats := &dto.TestStatsDTO{TestID: testID, TotalCandidates: len(candidates)}
	scoreSum, passed := 0, 0
	for _, c := range candidates {
		switch c.Status {
		case model.StatusPending:
			stats.Pending++
		case model.StatusInProgress:
			stats.InProgress++
		case model.StatusCompleted:
			stats.Completed++
			if c.Score != nil {
				scoreSum += *c.Score
				if test.PassingScore != nil && *c.Score >= *test.PassingScore {
					passed++
				}
			}
		}
	}
	if stats.Completed > 0 {
		stats.AverageScore = round2(float64(scoreSum) / float64(stats.Completed))
		if test.PassingScore != nil {
			rate := round2(float64(passed) / float64(stats.Completed) * 100)
			stats.PassRate = &rate
		}
	}
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
