package simulation

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/synthsense/synthsense-backend/internal/logger"
)

const DefaultConcurrency = 50

// Failure records a persona that reached a terminal failed state. Failed
// personas produce no Outcome and are excluded from aggregation, but they are
// always surfaced in counts so a shrunken sample is never hidden.
type Failure struct {
	PersonaID uuid.UUID `json:"persona_id"`
	Stage     Stage     `json:"stage"`
	Reason    string    `json:"reason"`
}

type BatchResult struct {
	Outcomes []Outcome
	Failures []Failure
}

var ErrEmptyCohort = errors.New("cohort has no personas")

// Scheduler fans the two-stage rater out across a cohort with a hard cap on
// in-flight pipelines. One persona failing never aborts the batch; the batch
// ends when every persona reached a terminal state or ctx was canceled.
type Scheduler struct {
	rater       *Rater
	log         *logger.Logger
	concurrency int

	// OnProgress, when set, is invoked from worker goroutines each time a
	// persona reaches a terminal state. It must be safe for concurrent use.
	OnProgress func(completed, failed, total int)
}

func NewScheduler(rater *Rater, baseLog *logger.Logger, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{
		rater:       rater,
		log:         baseLog.With("component", "BatchScheduler"),
		concurrency: concurrency,
	}
}

type personaResult struct {
	outcome *Outcome
	failure *Failure
}

func (s *Scheduler) RunBatch(ctx context.Context, personas []Persona, ideaText, questionText string) (BatchResult, error) {
	if len(personas) == 0 {
		return BatchResult{}, ErrEmptyCohort
	}

	s.log.Info("Starting batch", "personas", len(personas), "concurrency", s.concurrency)

	// Plain group on purpose: a persona failure must not cancel siblings, so
	// workers never return an error. Cancellation comes only from ctx.
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)

	var completed, failed atomic.Int64
	total := len(personas)
	report := func() {
		if s.OnProgress != nil {
			s.OnProgress(int(completed.Load()), int(failed.Load()), total)
		}
	}

	results := make(chan personaResult, len(personas))
	for _, p := range personas {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				// Canceled before this persona ever started; no outcome, no
				// completion calls.
				results <- personaResult{failure: &Failure{PersonaID: p.ID, Stage: StageElicitation, Reason: ReasonCanceled}}
				failed.Add(1)
				report()
				return nil
			}
			outcome, err := s.rater.Run(ctx, p, ideaText, questionText)
			if err != nil {
				f := Failure{PersonaID: p.ID, Reason: ReasonCanceled}
				var pErr *PipelineError
				if errors.As(err, &pErr) {
					f.Stage = pErr.Stage
					f.Reason = pErr.Reason
				}
				results <- personaResult{failure: &f}
				failed.Add(1)
				report()
				return nil
			}
			results <- personaResult{outcome: &outcome}
			completed.Add(1)
			report()
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	// Single-writer accumulation: the channel is the only path into the
	// result slices, so no locking is needed.
	out := BatchResult{
		Outcomes: make([]Outcome, 0, len(personas)),
		Failures: make([]Failure, 0),
	}
	for r := range results {
		if r.outcome != nil {
			out.Outcomes = append(out.Outcomes, *r.outcome)
		}
		if r.failure != nil {
			out.Failures = append(out.Failures, *r.failure)
		}
	}

	s.log.Info("Batch finished", "succeeded", len(out.Outcomes), "failed", len(out.Failures))
	return out, nil
}
