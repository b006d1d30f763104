package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type SurveyResponseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, responses []*types.SurveyResponse) ([]*types.SurveyResponse, error)
	ListByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]*types.SurveyResponse, error)
	DeleteByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) error
}

type surveyResponseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSurveyResponseRepo(db *gorm.DB, baseLog *logger.Logger) SurveyResponseRepo {
	return &surveyResponseRepo{db: db, log: baseLog.With("repo", "SurveyResponseRepo")}
}

func (r *surveyResponseRepo) Create(ctx context.Context, tx *gorm.DB, responses []*types.SurveyResponse) ([]*types.SurveyResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(responses) == 0 {
		return []*types.SurveyResponse{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *surveyResponseRepo) ListByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]*types.SurveyResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SurveyResponse
	if err := transaction.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *surveyResponseRepo) DeleteByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Delete(&types.SurveyResponse{}).Error
}
