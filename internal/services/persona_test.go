package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type fakeJobRepo struct {
	jobs []*types.PersonaGenerationJob
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.PersonaGenerationJob) ([]*types.PersonaGenerationJob, error) {
	f.jobs = append(f.jobs, jobs...)
	return jobs, nil
}

func (f *fakeJobRepo) GetByIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.PersonaGenerationJob, error) {
	var out []*types.PersonaGenerationJob
	for _, job := range f.jobs {
		for _, id := range jobIDs {
			if job.ID == id {
				out = append(out, job)
			}
		}
	}
	return out, nil
}

func (f *fakeJobRepo) GetByPersonaGroup(ctx context.Context, tx *gorm.DB, personaGroup string) (*types.PersonaGenerationJob, error) {
	for _, job := range f.jobs {
		if job.PersonaGroup == personaGroup {
			return job, nil
		}
	}
	return nil, nil
}

func (f *fakeJobRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaGenerationJob, error) {
	var out []*types.PersonaGenerationJob
	for _, job := range f.jobs {
		if job.UserID == nil || *job.UserID == userID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]any) error {
	return nil
}

type fakePersonaRepo struct {
	rows []*types.Persona
}

func (f *fakePersonaRepo) Create(ctx context.Context, tx *gorm.DB, personas []*types.Persona) ([]*types.Persona, error) {
	f.rows = append(f.rows, personas...)
	return personas, nil
}

func (f *fakePersonaRepo) GetByIDs(ctx context.Context, tx *gorm.DB, personaIDs []uuid.UUID) ([]*types.Persona, error) {
	return nil, nil
}

func (f *fakePersonaRepo) ListByGenerationJobIDs(ctx context.Context, tx *gorm.DB, jobIDs []uuid.UUID) ([]*types.Persona, error) {
	var out []*types.Persona
	for _, row := range f.rows {
		for _, id := range jobIDs {
			if row.GenerationJobID == id {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

func (f *fakePersonaRepo) CountByGenerationJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range f.rows {
		if row.GenerationJobID == jobID {
			count++
		}
	}
	return count, nil
}

func serviceLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func userCtx(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func TestPersonaReadsHideForeignCohorts(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	owned := &types.PersonaGenerationJob{
		ID:           uuid.New(),
		UserID:       &owner,
		PersonaGroup: "beta-testers",
		Status:       types.JobStatusCompleted,
	}
	shared := &types.PersonaGenerationJob{
		ID:           uuid.New(),
		UserID:       nil,
		PersonaGroup: "default",
		Status:       types.JobStatusCompleted,
	}
	jobs := &fakeJobRepo{jobs: []*types.PersonaGenerationJob{owned, shared}}
	personas := &fakePersonaRepo{rows: []*types.Persona{
		{ID: uuid.New(), GenerationJobID: owned.ID, PersonaName: "Ada", PersonaData: datatypes.JSON(`{"persona_name":"Ada"}`)},
		{ID: uuid.New(), GenerationJobID: shared.ID, PersonaName: "Ben", PersonaData: datatypes.JSON(`{"persona_name":"Ben"}`)},
	}}
	svc := NewPersonaService(nil, serviceLogger(t), nil, jobs, personas, nil)

	t.Run("owner sees own job", func(t *testing.T) {
		job, err := svc.GetJob(userCtx(owner), owned.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.ID != owned.ID {
			t.Fatalf("got job %s, want %s", job.ID, owned.ID)
		}
	})

	t.Run("stranger cannot see job", func(t *testing.T) {
		if _, err := svc.GetJob(userCtx(stranger), owned.ID); err == nil {
			t.Fatal("expected not-found error for foreign job")
		}
	})

	t.Run("stranger cannot list job personas", func(t *testing.T) {
		if _, err := svc.ListPersonas(userCtx(stranger), owned.ID); err == nil {
			t.Fatal("expected not-found error for foreign job personas")
		}
	})

	t.Run("stranger cannot list group personas", func(t *testing.T) {
		if _, err := svc.ListGroupPersonas(userCtx(stranger), "beta-testers"); err == nil {
			t.Fatal("expected not-found error for foreign group")
		}
	})

	t.Run("stranger cannot load cohort", func(t *testing.T) {
		_, _, err := svc.LoadCohort(userCtx(stranger), "beta-testers")
		if err == nil {
			t.Fatal("expected not-found error for foreign cohort")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Fatalf("error should read as not found, got %q", err)
		}
	})

	t.Run("anyone can load default cohort", func(t *testing.T) {
		cohort, job, err := svc.LoadCohort(userCtx(stranger), "default")
		if err != nil {
			t.Fatalf("LoadCohort: %v", err)
		}
		if job.ID != shared.ID {
			t.Fatalf("got job %s, want %s", job.ID, shared.ID)
		}
		if len(cohort) != 1 || cohort[0].Name != "Ben" {
			t.Fatalf("unexpected cohort %+v", cohort)
		}
	})

	t.Run("owner can list group personas", func(t *testing.T) {
		rows, err := svc.ListGroupPersonas(userCtx(owner), "beta-testers")
		if err != nil {
			t.Fatalf("ListGroupPersonas: %v", err)
		}
		if len(rows) != 1 || rows[0].PersonaName != "Ada" {
			t.Fatalf("unexpected personas %+v", rows)
		}
	})
}

func TestListGroupsReportsLiveCounts(t *testing.T) {
	owner := uuid.New()
	big := &types.PersonaGenerationJob{ID: uuid.New(), UserID: &owner, PersonaGroup: "big", Status: types.JobStatusCompleted}
	empty := &types.PersonaGenerationJob{ID: uuid.New(), UserID: nil, PersonaGroup: "empty", Status: types.JobStatusGenerating}

	jobs := &fakeJobRepo{jobs: []*types.PersonaGenerationJob{big, empty}}
	personas := &fakePersonaRepo{}
	for i := 0; i < 3; i++ {
		personas.rows = append(personas.rows, &types.Persona{ID: uuid.New(), GenerationJobID: big.ID})
	}
	svc := NewPersonaService(nil, serviceLogger(t), nil, jobs, personas, nil)

	groups, err := svc.ListGroups(userCtx(owner))
	if err != nil {
		t.Fatalf("ListGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	counts := map[string]int64{}
	for _, g := range groups {
		counts[g.Job.PersonaGroup] = g.PersonaCount
	}
	if counts["big"] != 3 {
		t.Fatalf("group big count = %d, want 3", counts["big"])
	}
	if counts["empty"] != 0 {
		t.Fatalf("group empty count = %d, want 0", counts["empty"])
	}
}
