package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/ai"
	"github.com/synthsense/synthsense-backend/internal/httpx"
	"github.com/synthsense/synthsense-backend/internal/logger"
)

// Stages of a persona's two-stage pipeline. Each persona walks
// elicitation -> rating -> done, or fails terminally at whichever stage broke.
type Stage string

const (
	StageElicitation Stage = "elicitation"
	StageRating      Stage = "rating"
	StageDone        Stage = "done"
)

const (
	ReasonElicitationError = "elicitation_error"
	ReasonRatingError      = "rating_error"
	ReasonParseError       = "parse_error"
	ReasonCanceled         = "canceled"
)

// Outcome is one persona's successful pipeline result.
type Outcome struct {
	PersonaID    uuid.UUID `json:"persona_id"`
	PersonaName  string    `json:"persona_name"`
	ResponseText string    `json:"response_text"`
	Likert       int       `json:"likert"`
	Sentiment    Sentiment `json:"sentiment"`
}

// PipelineError is a persona's terminal failure: the stage that broke and why.
type PipelineError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persona pipeline failed at %s (%s): %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("persona pipeline failed at %s (%s)", e.Stage, e.Reason)
}

func (e *PipelineError) Unwrap() error { return e.Err }

type RaterConfig struct {
	// MaxRetries bounds re-attempts of a completion call after a transient
	// failure (timeout, rate limit). Non-transient errors never retry.
	MaxRetries   int
	RetryBackoff time.Duration

	ElicitationMaxTokens   int
	ElicitationTemperature float32
	RatingMaxTokens        int
	RatingTemperature      float32
}

func DefaultRaterConfig() RaterConfig {
	return RaterConfig{
		MaxRetries:             2,
		RetryBackoff:           time.Second,
		ElicitationMaxTokens:   150,
		ElicitationTemperature: 0.7,
		RatingMaxTokens:        10,
		RatingTemperature:      0.1,
	}
}

// Rater runs one persona through both stages: elicit a free-text reaction,
// then have a second completion map that reaction onto the 1-5 scale.
type Rater struct {
	client ai.Client
	log    *logger.Logger
	cfg    RaterConfig
}

func NewRater(client ai.Client, baseLog *logger.Logger, cfg RaterConfig) *Rater {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &Rater{client: client, log: baseLog.With("component", "TwoStageRater"), cfg: cfg}
}

func (r *Rater) Run(ctx context.Context, persona Persona, ideaText, questionText string) (Outcome, error) {
	stage := StageElicitation

	profile := FormatProfile(persona.Attrs)
	elicitCtx := ai.WithCallType(ctx, "elicitation")
	statement, err := r.completeWithRetry(elicitCtx, elicitationSystem, ElicitationPrompt(profile, ideaText, questionText), ai.Options{
		MaxTokens:   r.cfg.ElicitationMaxTokens,
		Temperature: r.cfg.ElicitationTemperature,
	})
	if err != nil {
		return Outcome{}, r.fail(persona, stage, ReasonElicitationError, err)
	}

	stage = StageRating
	ratingCtx := ai.WithCallType(ctx, "rating")
	ratingText, err := r.completeWithRetry(ratingCtx, ratingSystem, RatingPrompt(statement), ai.Options{
		MaxTokens:   r.cfg.RatingMaxTokens,
		Temperature: r.cfg.RatingTemperature,
	})
	if err != nil {
		return Outcome{}, r.fail(persona, stage, ReasonRatingError, err)
	}

	score, parseErr := ParseLikert(ratingText)
	if parseErr != nil {
		// One shot with the stricter reformulation, then give up. Never
		// substitute a midpoint score for an unparseable completion.
		r.log.Debug("Rating completion unparseable, retrying with strict prompt", "persona_id", persona.ID, "completion", ratingText)
		ratingText, err = r.completeWithRetry(ratingCtx, ratingSystem, StrictRatingPrompt(statement), ai.Options{
			MaxTokens:   r.cfg.RatingMaxTokens,
			Temperature: r.cfg.RatingTemperature,
		})
		if err != nil {
			return Outcome{}, r.fail(persona, stage, ReasonRatingError, err)
		}
		score, parseErr = ParseLikert(ratingText)
		if parseErr != nil {
			return Outcome{}, r.fail(persona, stage, ReasonParseError, parseErr)
		}
	}

	return Outcome{
		PersonaID:    persona.ID,
		PersonaName:  persona.Name,
		ResponseText: statement,
		Likert:       score,
		Sentiment:    SentimentFor(score),
	}, nil
}

func (r *Rater) fail(persona Persona, stage Stage, reason string, err error) error {
	// Cancellation often arrives wrapped by the transport.
	if errors.Is(err, context.Canceled) {
		reason = ReasonCanceled
	}
	r.log.Warn("Persona pipeline failed", "persona_id", persona.ID, "stage", string(stage), "reason", reason, "error", err)
	return &PipelineError{Stage: stage, Reason: reason, Err: err}
}

// completeWithRetry wraps a single completion call with the bounded retry
// policy: transient failures back off exponentially with jitter, everything
// else returns immediately.
func (r *Rater) completeWithRetry(ctx context.Context, system, user string, opts ai.Options) (string, error) {
	backoff := r.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := r.client.Complete(ctx, system, user, opts)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !ai.IsTransient(err) || attempt == r.cfg.MaxRetries {
			return "", err
		}
		// A server-provided Retry-After overrides the exponential schedule.
		sleepFor := httpx.JitterSleep(backoff)
		if ra := ai.RetryAfterOf(err); ra > 0 {
			sleepFor = ra
		}
		r.log.Debug("Transient completion failure, backing off", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return "", lastErr
}
