package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/ai"
	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/repos"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/simulation"
	"github.com/synthsense/synthsense-backend/internal/types"
)

const (
	personaBatchSize         = 10
	personaConcurrentBatches = 5
	personaGenMaxTokens      = 4000
	personaGenTemperature    = 0.8
)

type PersonaService interface {
	StartGeneration(ctx context.Context, audienceDescription, personaGroup, shortDescription string, totalPersonas int) (*types.PersonaGenerationJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.PersonaGenerationJob, error)
	ListGroups(ctx context.Context) ([]*PersonaGroup, error)
	ListPersonas(ctx context.Context, jobID uuid.UUID) ([]*types.Persona, error)
	ListGroupPersonas(ctx context.Context, personaGroup string) ([]*types.Persona, error)
	LoadCohort(ctx context.Context, personaGroup string) ([]simulation.Persona, *types.PersonaGenerationJob, error)
}

type personaService struct {
	db       *gorm.DB
	log      *logger.Logger
	client   ai.Client
	jobRepo  repos.PersonaGenerationJobRepo
	personas repos.PersonaRepo
	notifier Notifier
}

func NewPersonaService(
	db *gorm.DB,
	log *logger.Logger,
	client ai.Client,
	jobRepo repos.PersonaGenerationJobRepo,
	personaRepo repos.PersonaRepo,
	notifier Notifier,
) PersonaService {
	return &personaService{
		db:       db,
		log:      log.With("service", "PersonaService"),
		client:   client,
		jobRepo:  jobRepo,
		personas: personaRepo,
		notifier: notifier,
	}
}

func (ps *personaService) StartGeneration(ctx context.Context, audienceDescription, personaGroup, shortDescription string, totalPersonas int) (*types.PersonaGenerationJob, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	audienceDescription = strings.TrimSpace(audienceDescription)
	personaGroup = strings.TrimSpace(personaGroup)
	if audienceDescription == "" {
		return nil, fmt.Errorf("an audience description is required")
	}
	if personaGroup == "" {
		return nil, fmt.Errorf("a persona group name is required")
	}
	if totalPersonas <= 0 {
		totalPersonas = 100
	}
	if existing, err := ps.jobRepo.GetByPersonaGroup(ctx, nil, personaGroup); err != nil {
		return nil, fmt.Errorf("failed to check persona group: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("persona group %q already exists", personaGroup)
	}

	userID := rd.UserID
	job := &types.PersonaGenerationJob{
		ID:                  uuid.New(),
		UserID:              &userID,
		AudienceDescription: audienceDescription,
		PersonaGroup:        personaGroup,
		ShortDescription:    strings.TrimSpace(shortDescription),
		Source:              "ai_generated",
		Status:              types.JobStatusGenerating,
		TotalPersonas:       totalPersonas,
	}
	if _, err := ps.jobRepo.Create(ctx, nil, []*types.PersonaGenerationJob{job}); err != nil {
		return nil, fmt.Errorf("failed to create generation job: %w", err)
	}
	ps.notifier.PersonaJobCreated(userID, job)

	// The job outlives the request; only the request data survives into the
	// worker context.
	bg := context.WithoutCancel(ctx)
	go ps.runGeneration(bg, job)

	return job, nil
}

func (ps *personaService) runGeneration(ctx context.Context, job *types.PersonaGenerationJob) {
	log := ps.log.With("job_id", job.ID, "persona_group", job.PersonaGroup)
	userID := uuid.Nil
	if job.UserID != nil {
		userID = *job.UserID
	}

	generated, err := ps.generateAll(ctx, job, log)
	if err != nil {
		log.Error("Persona generation failed", "error", err)
		updates := map[string]any{
			"status":        types.JobStatusFailed,
			"error_message": err.Error(),
		}
		if uErr := ps.jobRepo.UpdateFields(ctx, nil, job.ID, updates); uErr != nil {
			log.Error("Failed to mark job failed", "error", uErr)
		}
		job.Status = types.JobStatusFailed
		job.ErrorMessage = err.Error()
		ps.notifier.PersonaJobFailed(userID, job, err.Error())
		return
	}

	updates := map[string]any{
		"status":             types.JobStatusCompleted,
		"personas_generated": generated,
	}
	if uErr := ps.jobRepo.UpdateFields(ctx, nil, job.ID, updates); uErr != nil {
		log.Error("Failed to mark job completed", "error", uErr)
	}
	job.Status = types.JobStatusCompleted
	job.PersonasGenerated = generated
	log.Info("Persona generation completed", "generated", generated)
	ps.notifier.PersonaJobCompleted(userID, job)
}

func (ps *personaService) generateAll(ctx context.Context, job *types.PersonaGenerationJob, log *logger.Logger) (int, error) {
	totalBatches := (job.TotalPersonas + personaBatchSize - 1) / personaBatchSize
	userID := uuid.Nil
	if job.UserID != nil {
		userID = *job.UserID
	}

	g := &errgroup.Group{}
	g.SetLimit(personaConcurrentBatches)
	batches := make([][]simulation.Attributes, totalBatches)

	for i := 0; i < totalBatches; i++ {
		i := i
		size := personaBatchSize
		if remaining := job.TotalPersonas - i*personaBatchSize; remaining < size {
			size = remaining
		}
		g.Go(func() error {
			attrs, err := ps.generateBatch(ctx, job, size, i+1)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i+1, err)
			}
			batches[i] = attrs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var all []simulation.Attributes
	for _, b := range batches {
		all = append(all, b...)
	}
	if len(all) > job.TotalPersonas {
		all = all[:job.TotalPersonas]
	}
	if len(all) == 0 {
		return 0, fmt.Errorf("generator produced no personas")
	}

	rows := make([]*types.Persona, 0, len(all))
	for _, a := range all {
		raw, mErr := json.Marshal(a)
		if mErr != nil {
			return 0, fmt.Errorf("failed to serialize persona: %w", mErr)
		}
		rows = append(rows, &types.Persona{
			ID:              uuid.New(),
			UserID:          job.UserID,
			GenerationJobID: job.ID,
			PersonaName:     a.PersonaName,
			PersonaData:     datatypes.JSON(raw),
		})
	}
	if _, err := ps.personas.Create(ctx, nil, rows); err != nil {
		return 0, fmt.Errorf("failed to persist personas: %w", err)
	}

	ps.notifier.PersonaJobProgress(userID, job, len(rows), job.TotalPersonas)
	return len(rows), nil
}

func (ps *personaService) generateBatch(ctx context.Context, job *types.PersonaGenerationJob, batchSize, batchNumber int) ([]simulation.Attributes, error) {
	system := personaBatchSystemPrompt(job.AudienceDescription, batchSize)
	user := fmt.Sprintf("Generate %d unique personas for batch %d. Make them completely different from previous batches. Return ONLY a valid JSON array with exactly %d personas, no markdown formatting.", batchSize, batchNumber, batchSize)

	jobID := job.ID
	callCtx := ai.WithCallMeta(ctx, "persona_generation", &jobID)
	content, err := ps.client.Complete(callCtx, system, user, ai.Options{
		MaxTokens:   personaGenMaxTokens,
		Temperature: personaGenTemperature,
	})
	if err != nil {
		return nil, err
	}

	attrs, err := ParsePersonaBatch(content)
	if err != nil {
		return nil, err
	}
	// The generator is allowed to come in slightly short, but a badly
	// off-count batch means it ignored the instructions.
	if len(attrs) < batchSize*9/10 {
		return nil, fmt.Errorf("generator returned %d personas, expected %d", len(attrs), batchSize)
	}
	if len(attrs) > batchSize {
		attrs = attrs[:batchSize]
	}
	return attrs, nil
}

func personaBatchSystemPrompt(audienceDescription string, batchSize int) string {
	return fmt.Sprintf(`You are an expert at creating realistic, diverse user personas for market research. Generate exactly %d unique personas based on this audience: "%s".

MANDATORY FIELDS (must be included for every persona):
- persona_name (string, full name)
- age (number)
- birth_city_country (string, format: "City, Country")
- city_country (string, format: "City, Country")
- education (string, e.g., "High School", "Bachelor's Degree", "PhD")
- income (string, annual income in USD, e.g., "$45,000", "$120,000")
- income_level (string, must be one of: "low", "medium", "high", "very high")
- occupation (string)
- relationship_status (string, e.g., "Single", "Married", "Divorced")
- sex (string, "Male" or "Female" or "Non-binary")

IMPORTANT:
1. Each persona must be UNIQUE - different combinations of demographics
2. Ensure diversity across age, location, income levels, and backgrounds
3. Return ONLY valid JSON array, no markdown formatting
4. Include ONLY the mandatory fields listed above
5. Income level mapping: <$30k = low, $30-80k = medium, $80-150k = high, >$150k = very high`, batchSize, audienceDescription)
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParsePersonaBatch decodes a generator completion into attribute bags. Code
// fences are tolerated even though the prompt forbids them.
func ParsePersonaBatch(content string) ([]simulation.Attributes, error) {
	content = strings.TrimSpace(content)
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var attrs []simulation.Attributes
	if err := json.Unmarshal([]byte(content), &attrs); err != nil {
		return nil, fmt.Errorf("generator did not return a JSON array: %w", err)
	}
	for i, a := range attrs {
		if strings.TrimSpace(a.PersonaName) == "" {
			return nil, fmt.Errorf("persona %d is missing persona_name", i)
		}
	}
	return attrs, nil
}

// jobAccessible applies the visibility rule for cohorts: default cohorts
// (no owner) are readable by everyone, owned cohorts only by their owner.
func jobAccessible(ctx context.Context, job *types.PersonaGenerationJob) bool {
	if job == nil {
		return false
	}
	if job.UserID == nil {
		return true
	}
	rd := requestdata.GetRequestData(ctx)
	return rd != nil && rd.UserID == *job.UserID
}

func (ps *personaService) GetJob(ctx context.Context, jobID uuid.UUID) (*types.PersonaGenerationJob, error) {
	jobs, err := ps.jobRepo.GetByIDs(ctx, nil, []uuid.UUID{jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if len(jobs) == 0 || !jobAccessible(ctx, jobs[0]) {
		return nil, fmt.Errorf("generation job not found")
	}
	return jobs[0], nil
}

// PersonaGroup pairs a cohort with its live persona count. PersonasGenerated
// on the job is a progress counter; the count here is what the table holds.
type PersonaGroup struct {
	Job          *types.PersonaGenerationJob `json:"job"`
	PersonaCount int64                       `json:"persona_count"`
}

func (ps *personaService) ListGroups(ctx context.Context) ([]*PersonaGroup, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no authenticated user in request context")
	}
	jobs, err := ps.jobRepo.ListForUser(ctx, nil, rd.UserID)
	if err != nil {
		return nil, err
	}
	groups := make([]*PersonaGroup, 0, len(jobs))
	for _, job := range jobs {
		count, cErr := ps.personas.CountByGenerationJobID(ctx, nil, job.ID)
		if cErr != nil {
			return nil, fmt.Errorf("failed to count personas for group %q: %w", job.PersonaGroup, cErr)
		}
		groups = append(groups, &PersonaGroup{Job: job, PersonaCount: count})
	}
	return groups, nil
}

func (ps *personaService) ListPersonas(ctx context.Context, jobID uuid.UUID) ([]*types.Persona, error) {
	if _, err := ps.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return ps.personas.ListByGenerationJobIDs(ctx, nil, []uuid.UUID{jobID})
}

func (ps *personaService) ListGroupPersonas(ctx context.Context, personaGroup string) ([]*types.Persona, error) {
	job, err := ps.jobRepo.GetByPersonaGroup(ctx, nil, personaGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona group: %w", err)
	}
	if !jobAccessible(ctx, job) {
		return nil, fmt.Errorf("persona group %q not found", personaGroup)
	}
	return ps.personas.ListByGenerationJobIDs(ctx, nil, []uuid.UUID{job.ID})
}

// LoadCohort resolves a persona group name into the pipeline's view of its
// members.
func (ps *personaService) LoadCohort(ctx context.Context, personaGroup string) ([]simulation.Persona, *types.PersonaGenerationJob, error) {
	job, err := ps.jobRepo.GetByPersonaGroup(ctx, nil, personaGroup)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load persona group: %w", err)
	}
	if !jobAccessible(ctx, job) {
		return nil, nil, fmt.Errorf("persona group %q not found", personaGroup)
	}
	if job.Status != types.JobStatusCompleted {
		return nil, nil, fmt.Errorf("persona group %q is not ready (status %s)", personaGroup, job.Status)
	}

	rows, err := ps.personas.ListByGenerationJobIDs(ctx, nil, []uuid.UUID{job.ID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load personas: %w", err)
	}

	cohort := make([]simulation.Persona, 0, len(rows))
	for _, row := range rows {
		var attrs simulation.Attributes
		if uErr := json.Unmarshal(row.PersonaData, &attrs); uErr != nil {
			ps.log.Warn("Skipping persona with unreadable attributes", "persona_id", row.ID, "error", uErr)
			continue
		}
		cohort = append(cohort, simulation.Persona{
			ID:    row.ID,
			Name:  row.PersonaName,
			Attrs: attrs,
		})
	}
	return cohort, job, nil
}
