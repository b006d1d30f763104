package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type PersonaRepo interface {
	Create(ctx context.Context, tx *gorm.DB, personas []*types.Persona) ([]*types.Persona, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, personaIDs []uuid.UUID) ([]*types.Persona, error)
	ListByGenerationJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.Persona, error)
	CountByGenerationJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (int64, error)
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: baseLog.With("repo", "PersonaRepo")}
}

func (r *personaRepo) Create(ctx context.Context, tx *gorm.DB, personas []*types.Persona) ([]*types.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(personas) == 0 {
		return []*types.Persona{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

func (r *personaRepo) GetByIDs(ctx context.Context, tx *gorm.DB, personaIDs []uuid.UUID) ([]*types.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Persona
	if len(personaIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", personaIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personaRepo) ListByGenerationJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.Persona, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Persona
	if len(jobIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("generation_job_id IN ?", jobIDs).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personaRepo) CountByGenerationJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Persona{}).
		Where("generation_job_id = ?", jobID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
