package service

import (
	"testing"

	"github.com/lshigami/codescreen/internal/model"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestScoreWeightedPoints(t *testing.T) {
	questions := []model.Question{{ID: 1, Points: 1}, {ID: 2, Points: 3}, {ID: 3, Points: 10}}
	responses := []model.Response{
		{QuestionID: 1, Points: 1},
		{QuestionID: 2, Points: 0},
		{QuestionID: 3, Points: 0},
	}

	result := NewScoringService().Score(responses, questions)
	assert.Equal(t, ScoreResult{FinalScore: 7, TotalScore: 1, TotalPoints: 14}, result)
}

func TestScoreEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		questions []model.Question
		responses []model.Response
		want      ScoreResult
	}{
		{
			name: "no questions",
			want: ScoreResult{},
		},
		{
			name:      "all correct",
			questions: []model.Question{{ID: 1, Points: 2}, {ID: 2, Points: 2}},
			responses: []model.Response{{QuestionID: 1, Points: 2}, {QuestionID: 2, Points: 2}},
			want:      ScoreResult{FinalScore: 100, TotalScore: 4, TotalPoints: 4},
		},
		{
			name:      "unanswered questions still count",
			questions: []model.Question{{ID: 1}, {ID: 2}, {ID: 3}},
			responses: []model.Response{{QuestionID: 2, Points: 1}},
			want:      ScoreResult{FinalScore: 33, TotalScore: 1, TotalPoints: 3},
		},
		{
			name:      "responses to foreign questions are ignored",
			questions: []model.Question{{ID: 1, Points: 1}},
			responses: []model.Response{{QuestionID: 9, Points: 5}},
			want:      ScoreResult{FinalScore: 0, TotalScore: 0, TotalPoints: 1},
		},
		{
			name:      "points are capped at the question weight",
			questions: []model.Question{{ID: 1, Points: 2}},
			responses: []model.Response{{QuestionID: 1, Points: 5}},
			want:      ScoreResult{FinalScore: 100, TotalScore: 2, TotalPoints: 2},
		},
		{
			name:      "rounds half up",
			questions: []model.Question{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}, {ID: 6}, {ID: 7}, {ID: 8}},
			responses: []model.Response{{QuestionID: 1, Points: 1}},
			want:      ScoreResult{FinalScore: 13, TotalScore: 1, TotalPoints: 8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewScoringService().Score(tt.responses, tt.questions))
		})
	}
}

func TestScoreIsOrderIndependent(t *testing.T) {
	questions := []model.Question{{ID: 1, Points: 1}, {ID: 2, Points: 3}, {ID: 3, Points: 10}}
	reversed := []model.Question{questions[2], questions[1], questions[0]}
	responses := []model.Response{{QuestionID: 3, Points: 10}, {QuestionID: 1, Points: 1}}

	s := NewScoringService()
	assert.Equal(t, s.Score(responses, questions), s.Score(responses, reversed))
}

func TestGradeByQuestionType(t *testing.T) {
	tests := []struct {
		name        string
		question    model.Question
		value       string
		wantCorrect *bool
		wantPoints  int
	}{
		{"multiple choice match", model.Question{Type: model.QuestionTypeMultipleChoice, Answer: strPtr("2"), Points: 3}, "2", boolPtr(true), 3},
		{"multiple choice miss", model.Question{Type: model.QuestionTypeMultipleChoice, Answer: strPtr("2"), Points: 3}, "1", boolPtr(false), 0},
		{"blank clears credit", model.Question{Type: model.QuestionTypeMultipleChoice, Answer: strPtr("0")}, "", boolPtr(false), 0},
		{"pattern match with default weight", model.Question{Type: model.QuestionTypePatternRecognition, Answer: strPtr("1")}, "1", boolPtr(true), 1},
		{"missing answer key", model.Question{Type: model.QuestionTypeMultipleChoice}, "0", boolPtr(false), 0},
		{"coding never graded", model.Question{Type: model.QuestionTypeCoding, Points: 5}, "func main() {}", nil, 0},
		{"subjective never graded", model.Question{Type: model.QuestionTypeSubjective, Answer: strPtr("yes"), Points: 5}, "yes", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isCorrect, points := NewScoringService().Grade(&tt.question, tt.value)
			assert.Equal(t, tt.wantCorrect, isCorrect)
			assert.Equal(t, tt.wantPoints, points)
		})
	}
}

func boolPtr(b bool) *bool { return &b }
