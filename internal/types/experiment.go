package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Experiment statuses. Draft experiments have been created but never run;
// a run moves the row pending -> running -> completed | failed.
const (
	ExperimentStatusDraft     = "draft"
	ExperimentStatusPending   = "pending"
	ExperimentStatusRunning   = "running"
	ExperimentStatusCompleted = "completed"
	ExperimentStatusFailed    = "failed"
)

type Experiment struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	IdeaText            string         `gorm:"not null;column:idea_text" json:"idea_text"`
	QuestionText        string         `gorm:"not null;column:question_text" json:"question_text"`
	PersonaGroup        string         `gorm:"not null;index;column:persona_group" json:"persona_group"`
	Status              string         `gorm:"not null;default:'draft';column:status" json:"status"`
	Title               string         `gorm:"column:title" json:"title"`
	PersonaCount        int            `gorm:"not null;default:0;column:persona_count" json:"persona_count"`
	FailedCount         int            `gorm:"not null;default:0;column:failed_count" json:"failed_count"`
	ResultsSummary      datatypes.JSON `gorm:"type:jsonb;column:results_summary" json:"results_summary,omitempty"`
	RecommendedNextStep string         `gorm:"column:recommended_next_step" json:"recommended_next_step"`
	ErrorMessage        string         `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Experiment) TableName() string {
	return "experiment"
}
