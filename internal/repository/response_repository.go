package repository

import (
	"context"
	"errors"

	"github.com/lshigami/codescreen/internal/apperrors"
	"github.com/lshigami/codescreen/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseRepository interface {
	// Upsert stores the response for (CandidateID, QuestionID), overwriting any previous
	// value. It reports whether a new row was created and refreshes response from the store.
	Upsert(ctx context.Context, response *model.Response) (bool, error)
	FindByCandidate(ctx context.Context, candidateID uint) ([]model.Response, error)
	FindByCandidateAndQuestion(ctx context.Context, candidateID, questionID uint) (*model.Response, error)
}

type responseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Upsert(ctx context.Context, response *model.Response) (bool, error) {
	_, err := r.FindByCandidateAndQuestion(ctx, response.CandidateID, response.QuestionID)
	created := errors.Is(err, apperrors.ErrNotFound)
	if err != nil && !created {
		return false, err
	}

	row := model.Response{
		CandidateID: response.CandidateID,
		QuestionID:  response.QuestionID,
		Response:    response.Response,
		IsCorrect:   response.IsCorrect,
		Points:      response.Points,
		SubmittedAt: response.SubmittedAt,
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"response", "is_correct", "points", "submitted_at", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return false, translate(err)
	}

	stored, err := r.FindByCandidateAndQuestion(ctx, response.CandidateID, response.QuestionID)
	if err != nil {
		return false, err
	}
	*response = *stored
	return created, nil
}

func (r *responseRepository) FindByCandidate(ctx context.Context, candidateID uint) ([]model.Response, error) {
	var responses []model.Response
	err := r.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		Order("question_id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, translate(err)
	}
	return responses, nil
}

func (r *responseRepository) FindByCandidateAndQuestion(ctx context.Context, candidateID, questionID uint) (*model.Response, error) {
	var response model.Response
	err := r.db.WithContext(ctx).
		Where("candidate_id = ? AND question_id = ?", candidateID, questionID).
		First(&response).Error
	if err != nil {
		return nil, translate(err)
	}
	return &response, nil
}
