package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Generation job statuses.
const (
	JobStatusGenerating = "generating"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// PersonaGenerationJob doubles as the cohort record: every persona belongs to
// exactly one job, and PersonaGroup is the cohort's name.
type PersonaGenerationJob struct {
	ID                  uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	AudienceDescription string     `gorm:"not null;column:audience_description" json:"audience_description"`
	PersonaGroup        string     `gorm:"not null;index;column:persona_group" json:"persona_group"`
	ShortDescription    string     `gorm:"column:short_description" json:"short_description"`
	Source              string     `gorm:"not null;default:'ai_generated';column:source" json:"source"`
	Status              string     `gorm:"not null;default:'generating';column:status" json:"status"`
	PersonasGenerated   int        `gorm:"not null;default:0;column:personas_generated" json:"personas_generated"`
	TotalPersonas       int        `gorm:"not null;default:100;column:total_personas" json:"total_personas"`
	ErrorMessage        string     `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt           time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (PersonaGenerationJob) TableName() string {
	return "persona_generation_job"
}

type Persona struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	GenerationJobID uuid.UUID      `gorm:"type:uuid;not null;index" json:"generation_job_id"`
	PersonaName     string         `gorm:"not null;column:persona_name" json:"persona_name"`
	PersonaData     datatypes.JSON `gorm:"type:jsonb;not null;column:persona_data" json:"persona_data"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Persona) TableName() string {
	return "persona"
}
