package service

import (
	"math"

	"github.com/lshigami/codescreen/internal/model"
)

// ScoreResult is the outcome of scoring one candidate's responses.
type ScoreResult struct {
	FinalScore  int // percentage, 0-100
	TotalScore  int
	TotalPoints int
}

type ScoringService interface {
	// Grade evaluates a single response at write time. Coding and subjective
	// questions are never auto-graded: they get no verdict and 0 points.
	Grade(question *model.Question, value string) (isCorrect *bool, points int)
	// Score is a pure function of the stored responses and the test's questions.
	Score(responses []model.Response, questions []model.Question) ScoreResult
}

type scoringService struct{}

func NewScoringService() ScoringService {
	return &scoringService{}
}

func (s *scoringService) Grade(question *model.Question, value string) (*bool, int) {
	if !question.Type.AutoGradable() {
		return nil, 0
	}
	correct := question.Answer != nil && value == *question.Answer
	if !correct {
		return &correct, 0
	}
	return &correct, question.Weight()
}

func (s *scoringService) Score(responses []model.Response, questions []model.Question) ScoreResult {
	awarded := make(map[uint]int, len(responses))
	for _, r := range responses {
		awarded[r.QuestionID] = r.Points
	}

	var result ScoreResult
	for i := range questions {
		weight := questions[i].Weight()
		result.TotalPoints += weight

		points := awarded[questions[i].ID]
		if points < 0 {
			points = 0
		}
		if points > weight {
			points = weight
		}
		result.TotalScore += points
	}

	if result.TotalPoints > 0 {
		result.FinalScore = int(math.Round(float64(result.TotalScore) / float64(result.TotalPoints) * 100))
	}
	return result
}
