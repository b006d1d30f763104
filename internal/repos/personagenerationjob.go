package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type PersonaGenerationJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.PersonaGenerationJob) ([]*types.PersonaGenerationJob, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.PersonaGenerationJob, error)
	GetByPersonaGroup(ctx context.Context, tx *gorm.DB, personaGroup string) (*types.PersonaGenerationJob, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaGenerationJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]any) error
}

type personaGenerationJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaGenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) PersonaGenerationJobRepo {
	return &personaGenerationJobRepo{db: db, log: baseLog.With("repo", "PersonaGenerationJobRepo")}
}

func (r *personaGenerationJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.PersonaGenerationJob) ([]*types.PersonaGenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.PersonaGenerationJob{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *personaGenerationJobRepo) GetByIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.PersonaGenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PersonaGenerationJob
	if len(jobIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", jobIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personaGenerationJobRepo) GetByPersonaGroup(ctx context.Context, tx *gorm.DB, personaGroup string) (*types.PersonaGenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.PersonaGenerationJob
	err := transaction.WithContext(ctx).
		Where("persona_group = ?", personaGroup).
		Order("created_at DESC").
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *personaGenerationJobRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaGenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.PersonaGenerationJob
	// Default cohorts (user_id IS NULL) are visible to everyone.
	if err := transaction.WithContext(ctx).
		Where("user_id = ? OR user_id IS NULL", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personaGenerationJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.PersonaGenerationJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}
