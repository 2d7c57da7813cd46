package repository

import (
	"context"
	"time"

	"github.com/lshigami/codescreen/internal/model"
	"gorm.io/gorm"
)

type CandidateRepository interface {
	Create(ctx context.Context, candidate *model.Candidate) error
	FindByID(ctx context.Context, id uint) (*model.Candidate, error)
	FindByTestLink(ctx context.Context, testLink string) (*model.Candidate, error)
	FindByTest(ctx context.Context, testID uint) ([]model.Candidate, error)
	FindInProgress(ctx context.Context) ([]model.Candidate, error)
	// MarkStarted moves a pending candidate to in_progress. It reports false when the
	// candidate was not pending anymore.
	MarkStarted(ctx context.Context, id uint, at time.Time) (bool, error)
	// MarkCompleted applies the terminal write unless the candidate is already completed.
	// Exactly one caller observes true per candidate.
	MarkCompleted(ctx context.Context, id uint, completion model.Completion) (bool, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) Create(ctx context.Context, candidate *model.Candidate) error {
	return translate(r.db.WithContext(ctx).Omit("Test", "Responses").Create(candidate).Error)
}

func (r *candidateRepository) FindByID(ctx context.Context, id uint) (*model.Candidate, error) {
	var candidate model.Candidate
	if err := r.db.WithContext(ctx).First(&candidate, id).Error; err != nil {
		return nil, translate(err)
	}
	return &candidate, nil
}

func (r *candidateRepository) FindByTestLink(ctx context.Context, testLink string) (*model.Candidate, error) {
	var candidate model.Candidate
	if err := r.db.WithContext(ctx).Where("test_link = ?", testLink).First(&candidate).Error; err != nil {
		return nil, translate(err)
	}
	return &candidate, nil
}

func (r *candidateRepository) FindByTest(ctx context.Context, testID uint) ([]model.Candidate, error) {
	var candidates []model.Candidate
	err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("invited_at DESC, id DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, translate(err)
	}
	return candidates, nil
}

func (r *candidateRepository) FindInProgress(ctx context.Context) ([]model.Candidate, error) {
	var candidates []model.Candidate
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StatusInProgress).
		Order("started_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, translate(err)
	}
	return candidates, nil
}

func (r *candidateRepository) MarkStarted(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Candidate{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":     model.StatusInProgress,
			"started_at": at,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *candidateRepository) MarkCompleted(ctx context.Context, id uint, completion model.Completion) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Candidate{}).
		Where("id = ? AND status <> ?", id, model.StatusCompleted).
		Updates(map[string]interface{}{
			"status":         model.StatusCompleted,
			"completed_at":   completion.CompletedAt,
			"auto_submitted": completion.AutoSubmitted,
			"score":          completion.Score,
			"started_at":     gorm.Expr("COALESCE(started_at, ?)", completion.CompletedAt),
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}
