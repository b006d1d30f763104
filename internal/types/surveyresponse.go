package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SurveyResponse is one persona's outcome for one experiment run. A persona
// whose pipeline failed gets no row; failures are counted on the experiment.
type SurveyResponse struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExperimentID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"experiment_id"`
	PersonaID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"persona_id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ResponseText     string         `gorm:"not null;column:response_text" json:"response_text"`
	Likert           int            `gorm:"not null;column:likert" json:"likert"`
	Sentiment        string         `gorm:"not null;column:sentiment" json:"sentiment"`
	ResponseMetadata datatypes.JSON `gorm:"type:jsonb;column:response_metadata" json:"response_metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (SurveyResponse) TableName() string {
	return "survey_response"
}
