package app

import (
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/repos"
)

type Repos struct {
	User                 repos.UserRepo
	UserToken            repos.UserTokenRepo
	PersonaGenerationJob repos.PersonaGenerationJobRepo
	Persona              repos.PersonaRepo
	Experiment           repos.ExperimentRepo
	SurveyResponse       repos.SurveyResponseRepo
	AICallLog            repos.AICallLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:                 repos.NewUserRepo(db, log),
		UserToken:            repos.NewUserTokenRepo(db, log),
		PersonaGenerationJob: repos.NewPersonaGenerationJobRepo(db, log),
		Persona:              repos.NewPersonaRepo(db, log),
		Experiment:           repos.NewExperimentRepo(db, log),
		SurveyResponse:       repos.NewSurveyResponseRepo(db, log),
		AICallLog:            repos.NewAICallLogRepo(db, log),
	}
}
