package simulation

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/ai"
)

// countingClient records the concurrent-call high-water mark and fails
// personas whose profile carries a marker occupation.
type countingClient struct {
	inFlight  atomic.Int64
	highWater atomic.Int64
	delay     time.Duration
}

func (c *countingClient) Model() string { return "counting" }

func (c *countingClient) Complete(ctx context.Context, system, user string, opts ai.Options) (string, error) {
	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		prev := c.highWater.Load()
		if cur <= prev || c.highWater.CompareAndSwap(prev, cur) {
			break
		}
	}
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}
	if strings.Contains(user, "doomed") {
		return "", &ai.Error{Kind: ai.KindProviderError, Status: 500, Msg: "induced"}
	}
	if system == ratingSystem {
		return "4", nil
	}
	return "I would give this a try.", nil
}

func makeCohort(n int, occupation string) []Persona {
	personas := make([]Persona, n)
	for i := range personas {
		personas[i] = Persona{ID: uuid.New(), Name: "p", Attrs: Attributes{Occupation: occupation}}
	}
	return personas
}

func newTestScheduler(t *testing.T, client ai.Client, concurrency int) *Scheduler {
	t.Helper()
	cfg := fastConfig()
	cfg.MaxRetries = 0
	return NewScheduler(NewRater(client, testLogger(t), cfg), testLogger(t), concurrency)
}

func TestRunBatchEmptyCohort(t *testing.T) {
	s := newTestScheduler(t, &countingClient{}, 4)
	if _, err := s.RunBatch(context.Background(), nil, "idea", "q"); !errors.Is(err, ErrEmptyCohort) {
		t.Fatalf("RunBatch(nil cohort) err = %v, want ErrEmptyCohort", err)
	}
}

func TestRunBatchRespectsConcurrencyLimit(t *testing.T) {
	client := &countingClient{delay: 5 * time.Millisecond}
	limit := 5
	s := newTestScheduler(t, client, limit)

	res, err := s.RunBatch(context.Background(), makeCohort(30, "engineer"), "idea", "q")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res.Outcomes) != 30 || len(res.Failures) != 0 {
		t.Fatalf("results = %d outcomes / %d failures, want 30/0", len(res.Outcomes), len(res.Failures))
	}
	if hw := client.highWater.Load(); hw > int64(limit) {
		t.Fatalf("concurrent-call high-water mark %d exceeds limit %d", hw, limit)
	}
}

func TestRunBatchPersonaFailureDoesNotAbort(t *testing.T) {
	client := &countingClient{}
	s := newTestScheduler(t, client, 4)

	personas := makeCohort(7, "engineer")
	personas = append(personas, makeCohort(3, "doomed")...)

	res, err := s.RunBatch(context.Background(), personas, "idea", "q")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res.Outcomes) != 7 {
		t.Fatalf("outcomes = %d, want 7", len(res.Outcomes))
	}
	if len(res.Failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(res.Failures))
	}
	for _, f := range res.Failures {
		if f.Stage != StageElicitation || f.Reason != ReasonElicitationError {
			t.Errorf("failure = %s/%s, want elicitation/elicitation_error", f.Stage, f.Reason)
		}
	}
}

func TestRunBatchAllFail(t *testing.T) {
	s := newTestScheduler(t, &countingClient{}, 4)

	res, err := s.RunBatch(context.Background(), makeCohort(5, "doomed"), "idea", "q")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res.Outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0", len(res.Outcomes))
	}
	if len(res.Failures) != 5 {
		t.Fatalf("failures = %d, want 5", len(res.Failures))
	}
	if _, aggErr := ComputeBreakdown(res.Outcomes); !errors.Is(aggErr, ErrNoOutcomes) {
		t.Fatalf("aggregating an all-failed batch err = %v, want ErrNoOutcomes", aggErr)
	}
}

func TestRunBatchCanceledContext(t *testing.T) {
	s := newTestScheduler(t, &countingClient{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.RunBatch(ctx, makeCohort(6, "engineer"), "idea", "q")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res.Outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0 after pre-run cancellation", len(res.Outcomes))
	}
	if len(res.Failures) != 6 {
		t.Fatalf("failures = %d, want 6", len(res.Failures))
	}
	for _, f := range res.Failures {
		if f.Reason != ReasonCanceled {
			t.Errorf("failure reason = %s, want canceled", f.Reason)
		}
	}
}

func TestRunBatchEveryPersonaReachesTerminalState(t *testing.T) {
	client := &countingClient{delay: time.Millisecond}
	s := newTestScheduler(t, client, 3)

	personas := makeCohort(12, "engineer")
	seen := make(map[uuid.UUID]bool, len(personas))

	res, err := s.RunBatch(context.Background(), personas, "idea", "q")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	for _, o := range res.Outcomes {
		if seen[o.PersonaID] {
			t.Errorf("persona %s reported twice", o.PersonaID)
		}
		seen[o.PersonaID] = true
	}
	for _, f := range res.Failures {
		if seen[f.PersonaID] {
			t.Errorf("persona %s reported twice", f.PersonaID)
		}
		seen[f.PersonaID] = true
	}
	for _, p := range personas {
		if !seen[p.ID] {
			t.Errorf("persona %s has no terminal state", p.ID)
		}
	}
}
