package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/ai"
	redisclient "github.com/synthsense/synthsense-backend/internal/clients/redis"
	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/repos"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/simulation"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type ExperimentService interface {
	Create(ctx context.Context, ideaText, questionText, personaGroup, title string) (*types.Experiment, error)
	List(ctx context.Context) ([]*types.Experiment, error)
	Get(ctx context.Context, experimentID uuid.UUID) (*types.Experiment, error)
	Delete(ctx context.Context, experimentID uuid.UUID) error
	Run(ctx context.Context, experimentID uuid.UUID) (*types.Experiment, error)
	RunStatus(ctx context.Context, experimentID uuid.UUID) (*redisclient.RunStatus, error)
	Responses(ctx context.Context, experimentID uuid.UUID) ([]*types.SurveyResponse, error)
}

type experimentService struct {
	db          *gorm.DB
	log         *logger.Logger
	client      ai.Client
	rater       *simulation.Rater
	concurrency int
	experiments repos.ExperimentRepo
	responses   repos.SurveyResponseRepo
	personaSvc  PersonaService
	notifier    Notifier
	statusCache redisclient.StatusCache
	minSample   int
}

func NewExperimentService(
	db *gorm.DB,
	log *logger.Logger,
	client ai.Client,
	rater *simulation.Rater,
	concurrency int,
	experimentRepo repos.ExperimentRepo,
	responseRepo repos.SurveyResponseRepo,
	personaSvc PersonaService,
	notifier Notifier,
	statusCache redisclient.StatusCache,
	minSample int,
) ExperimentService {
	if minSample <= 0 {
		minSample = 1
	}
	return &experimentService{
		db:          db,
		log:         log.With("service", "ExperimentService"),
		client:      client,
		rater:       rater,
		concurrency: concurrency,
		experiments: experimentRepo,
		responses:   responseRepo,
		personaSvc:  personaSvc,
		notifier:    notifier,
		statusCache: statusCache,
		minSample:   minSample,
	}
}

func (es *experimentService) Create(ctx context.Context, ideaText, questionText, personaGroup, title string) (*types.Experiment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	ideaText = strings.TrimSpace(ideaText)
	questionText = strings.TrimSpace(questionText)
	personaGroup = strings.TrimSpace(personaGroup)
	if ideaText == "" {
		return nil, fmt.Errorf("idea text is required")
	}
	if questionText == "" {
		questionText = "Would you use this product?"
	}
	if personaGroup == "" {
		return nil, fmt.Errorf("a persona group is required")
	}
	if _, _, err := es.personaSvc.LoadCohort(ctx, personaGroup); err != nil {
		return nil, err
	}

	experiment := &types.Experiment{
		ID:           uuid.New(),
		UserID:       rd.UserID,
		IdeaText:     ideaText,
		QuestionText: questionText,
		PersonaGroup: personaGroup,
		Status:       types.ExperimentStatusDraft,
		Title:        strings.TrimSpace(title),
	}
	if _, err := es.experiments.Create(ctx, nil, []*types.Experiment{experiment}); err != nil {
		return nil, fmt.Errorf("failed to create experiment: %w", err)
	}
	es.notifier.ExperimentCreated(rd.UserID, experiment)
	return experiment, nil
}

func (es *experimentService) List(ctx context.Context) ([]*types.Experiment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	return es.experiments.ListForUser(ctx, nil, rd.UserID)
}

func (es *experimentService) Get(ctx context.Context, experimentID uuid.UUID) (*types.Experiment, error) {
	experiment, err := es.ownedExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return experiment, nil
}

func (es *experimentService) Delete(ctx context.Context, experimentID uuid.UUID) error {
	experiment, err := es.ownedExperiment(ctx, experimentID)
	if err != nil {
		return err
	}
	if experiment.Status == types.ExperimentStatusRunning || experiment.Status == types.ExperimentStatusPending {
		return fmt.Errorf("cannot delete an experiment while it is running")
	}
	err = es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if dErr := es.responses.DeleteByExperimentID(ctx, tx, experimentID); dErr != nil {
			return fmt.Errorf("failed to delete responses: %w", dErr)
		}
		return es.experiments.DeleteByID(ctx, tx, experimentID)
	})
	if err != nil {
		return err
	}
	_ = es.statusCache.Delete(ctx, experimentID)
	es.notifier.ExperimentDeleted(experiment.UserID, experimentID)
	return nil
}

// Run starts a simulation for the experiment and returns immediately with the
// row in pending state. Completion is pushed over SSE; progress is pollable
// via RunStatus.
func (es *experimentService) Run(ctx context.Context, experimentID uuid.UUID) (*types.Experiment, error) {
	experiment, err := es.ownedExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	if experiment.Status == types.ExperimentStatusRunning || experiment.Status == types.ExperimentStatusPending {
		return nil, fmt.Errorf("experiment is already running")
	}

	cohort, _, err := es.personaSvc.LoadCohort(ctx, experiment.PersonaGroup)
	if err != nil {
		return nil, err
	}
	if len(cohort) == 0 {
		return nil, fmt.Errorf("persona group %q has no personas", experiment.PersonaGroup)
	}

	// The pending transition is the lock: it only succeeds while the row is
	// idle, so two concurrent starts cannot both launch a simulation.
	claimed, cErr := es.experiments.ClaimForRun(ctx, nil, experimentID)
	if cErr != nil {
		return nil, fmt.Errorf("failed to mark experiment pending: %w", cErr)
	}
	if !claimed {
		return nil, fmt.Errorf("experiment is already running")
	}
	experiment.Status = types.ExperimentStatusPending

	// Re-running an experiment replaces its previous responses.
	if dErr := es.responses.DeleteByExperimentID(ctx, nil, experimentID); dErr != nil {
		return nil, fmt.Errorf("failed to clear previous responses: %w", dErr)
	}

	if cErr := es.statusCache.Set(ctx, redisclient.RunStatus{
		ExperimentID: experimentID,
		Status:       types.ExperimentStatusPending,
		Total:        len(cohort),
	}); cErr != nil {
		es.log.Warn("Failed to seed run status cache", "error", cErr)
	}

	bg := context.WithoutCancel(ctx)
	go es.runSimulation(bg, experiment, cohort)

	return experiment, nil
}

func (es *experimentService) runSimulation(ctx context.Context, experiment *types.Experiment, cohort []simulation.Persona) {
	log := es.log.With("experiment_id", experiment.ID)
	userID := experiment.UserID
	total := len(cohort)

	if uErr := es.experiments.UpdateFields(ctx, nil, experiment.ID, map[string]any{
		"status": types.ExperimentStatusRunning,
	}); uErr != nil {
		log.Error("Failed to mark experiment running", "error", uErr)
	}
	experiment.Status = types.ExperimentStatusRunning
	es.notifier.ExperimentRunStarted(userID, experiment)

	// Each run gets its own scheduler so progress callbacks from concurrent
	// runs never cross.
	scheduler := simulation.NewScheduler(es.rater, es.log, es.concurrency)
	scheduler.OnProgress = func(completed, failed, totalN int) {
		if sErr := es.statusCache.Set(ctx, redisclient.RunStatus{
			ExperimentID: experiment.ID,
			Status:       types.ExperimentStatusRunning,
			Completed:    completed,
			Failed:       failed,
			Total:        totalN,
		}); sErr != nil {
			log.Debug("Failed to update run status cache", "error", sErr)
		}
		es.notifier.ExperimentRunProgress(userID, experiment.ID, completed, failed, totalN)
	}

	callCtx := ai.WithCallMeta(ctx, "simulation", &experiment.ID)
	result, err := scheduler.RunBatch(callCtx, cohort, experiment.IdeaText, experiment.QuestionText)
	if err != nil {
		es.failExperiment(ctx, experiment, fmt.Sprintf("batch failed to start: %v", err))
		return
	}

	if len(result.Outcomes) < es.minSample {
		es.failExperiment(ctx, experiment, fmt.Sprintf(
			"only %d of %d personas completed (minimum sample is %d)",
			len(result.Outcomes), total, es.minSample))
		return
	}

	summary, err := simulation.Summarize(result.Outcomes, cohort)
	if err != nil {
		es.failExperiment(ctx, experiment, fmt.Sprintf("aggregation failed: %v", err))
		return
	}

	shortTitle, recommendation := es.generateRecommendation(ctx, experiment, summary.Breakdown)
	if recommendation == "" {
		recommendation = summary.Recommendation
	}
	summary.Recommendation = recommendation

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		es.failExperiment(ctx, experiment, fmt.Sprintf("failed to serialize summary: %v", err))
		return
	}

	rows := make([]*types.SurveyResponse, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		rows = append(rows, &types.SurveyResponse{
			ID:           uuid.New(),
			ExperimentID: experiment.ID,
			PersonaID:    o.PersonaID,
			UserID:       userID,
			ResponseText: o.ResponseText,
			Likert:       o.Likert,
			Sentiment:    string(o.Sentiment),
		})
	}

	updates := map[string]any{
		"status":                types.ExperimentStatusCompleted,
		"persona_count":         len(result.Outcomes),
		"failed_count":          len(result.Failures),
		"results_summary":       datatypes.JSON(summaryJSON),
		"recommended_next_step": recommendation,
	}
	if experiment.Title == "" && shortTitle != "" {
		updates["title"] = shortTitle
	}

	err = es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := es.responses.Create(ctx, tx, rows); cErr != nil {
			return fmt.Errorf("failed to persist responses: %w", cErr)
		}
		return es.experiments.UpdateFields(ctx, tx, experiment.ID, updates)
	})
	if err != nil {
		es.failExperiment(ctx, experiment, fmt.Sprintf("failed to persist results: %v", err))
		return
	}

	experiment.Status = types.ExperimentStatusCompleted
	experiment.PersonaCount = len(result.Outcomes)
	experiment.FailedCount = len(result.Failures)
	experiment.ResultsSummary = datatypes.JSON(summaryJSON)
	experiment.RecommendedNextStep = recommendation
	if t, ok := updates["title"].(string); ok {
		experiment.Title = t
	}

	if sErr := es.statusCache.Set(ctx, redisclient.RunStatus{
		ExperimentID: experiment.ID,
		Status:       types.ExperimentStatusCompleted,
		Completed:    len(result.Outcomes),
		Failed:       len(result.Failures),
		Total:        total,
	}); sErr != nil {
		log.Debug("Failed to finalize run status cache", "error", sErr)
	}
	log.Info("Experiment completed", "succeeded", len(result.Outcomes), "failed", len(result.Failures))
	es.notifier.ExperimentCompleted(userID, experiment)
}

func (es *experimentService) failExperiment(ctx context.Context, experiment *types.Experiment, message string) {
	es.log.Error("Experiment failed", "experiment_id", experiment.ID, "error", message)
	if uErr := es.experiments.UpdateFields(ctx, nil, experiment.ID, map[string]any{
		"status":        types.ExperimentStatusFailed,
		"error_message": message,
	}); uErr != nil {
		es.log.Error("Failed to mark experiment failed", "experiment_id", experiment.ID, "error", uErr)
	}
	experiment.Status = types.ExperimentStatusFailed
	experiment.ErrorMessage = message

	if sErr := es.statusCache.Set(ctx, redisclient.RunStatus{
		ExperimentID: experiment.ID,
		Status:       types.ExperimentStatusFailed,
	}); sErr != nil {
		es.log.Debug("Failed to record failed run status", "error", sErr)
	}
	es.notifier.ExperimentFailed(experiment.UserID, experiment, message)
}

// generateRecommendation asks the model for a strategy write-up over the
// aggregated statistics. Any failure here falls back to the deterministic
// rule table; a finished run never fails because of the recommendation call.
func (es *experimentService) generateRecommendation(ctx context.Context, experiment *types.Experiment, b simulation.Breakdown) (shortTitle, recommendation string) {
	system, user := simulation.RecommendationPrompts(experiment.IdeaText, b)
	callCtx := ai.WithCallMeta(ctx, "recommendation", &experiment.ID)
	content, err := es.client.Complete(callCtx, system, user, ai.Options{
		MaxTokens:   400,
		Temperature: 0.4,
	})
	if err != nil {
		es.log.Warn("Recommendation call failed, using rule table", "experiment_id", experiment.ID, "error", err)
		return "", ""
	}
	title, rec, pErr := ParseRecommendation(content)
	if pErr != nil {
		es.log.Warn("Recommendation completion unparseable, using rule table", "experiment_id", experiment.ID, "error", pErr)
		return "", ""
	}
	return title, rec
}

// ParseRecommendation decodes the recommendation completion's JSON body,
// tolerating code fences.
func ParseRecommendation(content string) (shortTitle, recommendation string, err error) {
	content = strings.TrimSpace(content)
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	var payload struct {
		ShortTitle     string `json:"short_title"`
		Recommendation string `json:"recommendation"`
	}
	if uErr := json.Unmarshal([]byte(content), &payload); uErr != nil {
		return "", "", fmt.Errorf("recommendation is not a JSON object: %w", uErr)
	}
	if strings.TrimSpace(payload.Recommendation) == "" {
		return "", "", fmt.Errorf("recommendation text is empty")
	}
	return strings.TrimSpace(payload.ShortTitle), strings.TrimSpace(payload.Recommendation), nil
}

func (es *experimentService) RunStatus(ctx context.Context, experimentID uuid.UUID) (*redisclient.RunStatus, error) {
	experiment, err := es.ownedExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	cached, cErr := es.statusCache.Get(ctx, experimentID)
	if cErr != nil {
		es.log.Debug("Run status cache read failed", "error", cErr)
	}
	if cached != nil {
		return cached, nil
	}
	// No cache entry: fall back to the persisted row.
	return &redisclient.RunStatus{
		ExperimentID: experimentID,
		Status:       experiment.Status,
		Completed:    experiment.PersonaCount,
		Failed:       experiment.FailedCount,
		Total:        experiment.PersonaCount + experiment.FailedCount,
	}, nil
}

func (es *experimentService) Responses(ctx context.Context, experimentID uuid.UUID) ([]*types.SurveyResponse, error) {
	if _, err := es.ownedExperiment(ctx, experimentID); err != nil {
		return nil, err
	}
	return es.responses.ListByExperimentID(ctx, nil, experimentID)
}

func (es *experimentService) ownedExperiment(ctx context.Context, experimentID uuid.UUID) (*types.Experiment, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	experiments, err := es.experiments.GetByIDs(ctx, nil, []uuid.UUID{experimentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	if len(experiments) == 0 || experiments[0].UserID != rd.UserID {
		return nil, fmt.Errorf("experiment not found")
	}
	return experiments[0], nil
}
