package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type ExperimentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, experiments []*types.Experiment) ([]*types.Experiment, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, experimentIDs []uuid.UUID) ([]*types.Experiment, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Experiment, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID, updates map[string]any) error
	ClaimForRun(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) (bool, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) error
}

type experimentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExperimentRepo(db *gorm.DB, baseLog *logger.Logger) ExperimentRepo {
	return &experimentRepo{db: db, log: baseLog.With("repo", "ExperimentRepo")}
}

func (r *experimentRepo) Create(ctx context.Context, tx *gorm.DB, experiments []*types.Experiment) ([]*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(experiments) == 0 {
		return []*types.Experiment{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&experiments).Error; err != nil {
		return nil, err
	}
	return experiments, nil
}

func (r *experimentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, experimentIDs []uuid.UUID) ([]*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Experiment
	if len(experimentIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", experimentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *experimentRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Experiment
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *experimentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Experiment{}).
		Where("id = ?", experimentID).
		Updates(updates).Error
}

// ClaimForRun moves an idle experiment to pending. The status guard lives in
// the UPDATE itself so two concurrent starts cannot both win; the loser sees
// zero affected rows.
func (r *experimentRepo) ClaimForRun(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Experiment{}).
		Where("id = ? AND status NOT IN ?", experimentID, []string{
			types.ExperimentStatusPending,
			types.ExperimentStatusRunning,
		}).
		Updates(map[string]any{
			"status":        types.ExperimentStatusPending,
			"error_message": "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *experimentRepo) DeleteByID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", experimentID).
		Delete(&types.Experiment{}).Error
}
