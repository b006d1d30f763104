package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/ai"
	redisclient "github.com/synthsense/synthsense-backend/internal/clients/redis"
	"github.com/synthsense/synthsense-backend/internal/simulation"
	"github.com/synthsense/synthsense-backend/internal/types"
)

// fakeExperimentRepo serves stale reads on purpose: GetByIDs always reports
// the status the row had at construction, while ClaimForRun consults the
// live status under a lock. That reproduces two requests racing past the
// read guard at the same time.
type fakeExperimentRepo struct {
	mu         sync.Mutex
	row        types.Experiment
	staleRead  string
	claimCalls int
}

func (f *fakeExperimentRepo) Create(ctx context.Context, tx *gorm.DB, experiments []*types.Experiment) ([]*types.Experiment, error) {
	return experiments, nil
}

func (f *fakeExperimentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, experimentIDs []uuid.UUID) ([]*types.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range experimentIDs {
		if id == f.row.ID {
			snapshot := f.row
			snapshot.Status = f.staleRead
			return []*types.Experiment{&snapshot}, nil
		}
	}
	return nil, nil
}

func (f *fakeExperimentRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Experiment, error) {
	return nil, nil
}

func (f *fakeExperimentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID, updates map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := updates["status"].(string); ok {
		f.row.Status = status
	}
	return nil
}

func (f *fakeExperimentRepo) ClaimForRun(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls++
	if f.row.Status == types.ExperimentStatusPending || f.row.Status == types.ExperimentStatusRunning {
		return false, nil
	}
	f.row.Status = types.ExperimentStatusPending
	return true, nil
}

func (f *fakeExperimentRepo) DeleteByID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) error {
	return nil
}

type fakeResponseRepo struct {
	mu          sync.Mutex
	deleteCalls int
}

func (f *fakeResponseRepo) Create(ctx context.Context, tx *gorm.DB, responses []*types.SurveyResponse) ([]*types.SurveyResponse, error) {
	return responses, nil
}

func (f *fakeResponseRepo) ListByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) ([]*types.SurveyResponse, error) {
	return nil, nil
}

func (f *fakeResponseRepo) DeleteByExperimentID(ctx context.Context, tx *gorm.DB, experimentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return nil
}

type fakeStatusCache struct {
	mu     sync.Mutex
	latest map[uuid.UUID]redisclient.RunStatus
}

func (f *fakeStatusCache) Set(ctx context.Context, status redisclient.RunStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		f.latest = map[uuid.UUID]redisclient.RunStatus{}
	}
	f.latest[status.ExperimentID] = status
	return nil
}

func (f *fakeStatusCache) Get(ctx context.Context, experimentID uuid.UUID) (*redisclient.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status, ok := f.latest[experimentID]; ok {
		return &status, nil
	}
	return nil, nil
}

func (f *fakeStatusCache) Delete(ctx context.Context, experimentID uuid.UUID) error { return nil }
func (f *fakeStatusCache) Close() error                                            { return nil }

// stallingClient parks every completion until its context dies, keeping the
// background simulation from ever finishing during the test.
type stallingClient struct{}

func (stallingClient) Complete(ctx context.Context, system, user string, opts ai.Options) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stallingClient) Model() string { return "stalling" }

type fixedCohortPersonas struct {
	PersonaService
	cohort []simulation.Persona
}

func (f *fixedCohortPersonas) LoadCohort(ctx context.Context, personaGroup string) ([]simulation.Persona, *types.PersonaGenerationJob, error) {
	return f.cohort, &types.PersonaGenerationJob{PersonaGroup: personaGroup}, nil
}

func TestRunClaimsExperimentExactlyOnce(t *testing.T) {
	owner := uuid.New()
	experimentID := uuid.New()

	experiments := &fakeExperimentRepo{
		row: types.Experiment{
			ID:           experimentID,
			UserID:       owner,
			IdeaText:     "a subscription for plant care",
			QuestionText: "Would you use this product?",
			PersonaGroup: "default",
			Status:       types.ExperimentStatusCompleted,
		},
		staleRead: types.ExperimentStatusCompleted,
	}
	responses := &fakeResponseRepo{}
	cohort := []simulation.Persona{{ID: uuid.New(), Name: "Ada"}}
	log := serviceLogger(t)
	rater := simulation.NewRater(stallingClient{}, log, simulation.DefaultRaterConfig())

	svc := NewExperimentService(
		nil, log, stallingClient{}, rater, 1,
		experiments, responses,
		&fixedCohortPersonas{cohort: cohort},
		NewNotifier(nil),
		&fakeStatusCache{},
		1,
	)

	ctx := userCtx(owner)

	first, err := svc.Run(ctx, experimentID)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.Status != types.ExperimentStatusPending {
		t.Fatalf("first run status = %q, want %q", first.Status, types.ExperimentStatusPending)
	}

	// The stale read still says completed, so this request sails past the
	// status check exactly like a concurrent POST would.
	if _, err := svc.Run(ctx, experimentID); err == nil {
		t.Fatal("second Run should be rejected while the first holds the claim")
	} else if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("second Run error = %q, want already-running", err)
	}

	if experiments.claimCalls != 2 {
		t.Fatalf("claim attempts = %d, want 2", experiments.claimCalls)
	}
	responses.mu.Lock()
	deletes := responses.deleteCalls
	responses.mu.Unlock()
	if deletes != 1 {
		t.Fatalf("response wipes = %d, want 1 (loser must not touch responses)", deletes)
	}
}
