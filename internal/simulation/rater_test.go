package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/ai"
	"github.com/synthsense/synthsense-backend/internal/logger"
)

// scriptedClient routes completion calls by stage (system prompt) and records
// them so tests can assert on call counts and prompt text.
type scriptedClient struct {
	mu          sync.Mutex
	elicit      func(call int, user string) (string, error)
	rate        func(call int, user string) (string, error)
	elicitCalls int
	rateCalls   int
	ratePrompts []string
}

func (c *scriptedClient) Model() string { return "scripted" }

func (c *scriptedClient) Complete(ctx context.Context, system, user string, opts ai.Options) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if system == ratingSystem {
		c.rateCalls++
		c.ratePrompts = append(c.ratePrompts, user)
		return c.rate(c.rateCalls, user)
	}
	c.elicitCalls++
	return c.elicit(c.elicitCalls, user)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func fastConfig() RaterConfig {
	cfg := DefaultRaterConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func testPersona() Persona {
	return Persona{
		ID:   uuid.New(),
		Name: "Maya Chen",
		Attrs: Attributes{
			PersonaName: "Maya Chen",
			Age:         29,
			Occupation:  "UX designer",
			IncomeLevel: "Medium",
		},
	}
}

func TestRaterHappyPath(t *testing.T) {
	client := &scriptedClient{
		elicit: func(int, string) (string, error) {
			return "I would sign up for this today, it fits my workflow perfectly.", nil
		},
		rate: func(int, string) (string, error) { return "5", nil },
	}
	r := NewRater(client, testLogger(t), fastConfig())

	p := testPersona()
	got, err := r.Run(context.Background(), p, "A meal-kit service", "Would you subscribe?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.PersonaID != p.ID || got.PersonaName != p.Name {
		t.Errorf("outcome identity = %s/%q, want %s/%q", got.PersonaID, got.PersonaName, p.ID, p.Name)
	}
	if got.Likert != 5 || got.Sentiment != SentimentAdopt {
		t.Errorf("outcome score = %d/%q, want 5/adopt", got.Likert, got.Sentiment)
	}
	if !strings.Contains(got.ResponseText, "sign up") {
		t.Errorf("ResponseText = %q, want the elicited statement", got.ResponseText)
	}
	if client.elicitCalls != 1 || client.rateCalls != 1 {
		t.Errorf("calls = %d elicit / %d rate, want 1/1", client.elicitCalls, client.rateCalls)
	}
}

func TestRaterStrictRetryOnUnparseableRating(t *testing.T) {
	client := &scriptedClient{
		elicit: func(int, string) (string, error) { return "Not for me at all.", nil },
		rate: func(call int, _ string) (string, error) {
			if call == 1 {
				return "I love it!", nil
			}
			return "1", nil
		},
	}
	r := NewRater(client, testLogger(t), fastConfig())

	got, err := r.Run(context.Background(), testPersona(), "idea", "question")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Likert != 1 || got.Sentiment != SentimentNotAdopt {
		t.Fatalf("score = %d/%q, want 1/not_adopt", got.Likert, got.Sentiment)
	}
	if client.rateCalls != 2 {
		t.Fatalf("rate calls = %d, want 2 (original then strict)", client.rateCalls)
	}
	if !strings.Contains(client.ratePrompts[1], "exactly one character") {
		t.Errorf("second rating prompt is not the strict reformulation: %q", client.ratePrompts[1])
	}
}

func TestRaterParseFailureIsTerminal(t *testing.T) {
	client := &scriptedClient{
		elicit: func(int, string) (string, error) { return "Hmm.", nil },
		rate:   func(int, string) (string, error) { return "no numbers here", nil },
	}
	r := NewRater(client, testLogger(t), fastConfig())

	_, err := r.Run(context.Background(), testPersona(), "idea", "question")
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("Run err = %v, want *PipelineError", err)
	}
	if pErr.Stage != StageRating || pErr.Reason != ReasonParseError {
		t.Fatalf("failure = %s/%s, want rating/parse_error", pErr.Stage, pErr.Reason)
	}
	if client.rateCalls != 2 {
		t.Fatalf("rate calls = %d, want exactly 2 (no further retries, no default score)", client.rateCalls)
	}
}

func TestRaterRetryPolicyByErrorKind(t *testing.T) {
	cases := []struct {
		name      string
		kind      ai.Kind
		wantCalls int
		wantOK    bool
	}{
		{name: "timeout retried to success", kind: ai.KindTimeout, wantCalls: 3, wantOK: true},
		{name: "rate limited retried to success", kind: ai.KindRateLimited, wantCalls: 3, wantOK: true},
		{name: "provider error fails fast", kind: ai.KindProviderError, wantCalls: 1, wantOK: false},
		{name: "invalid response fails fast", kind: ai.KindInvalidResponse, wantCalls: 1, wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &scriptedClient{
				elicit: func(call int, _ string) (string, error) {
					if call <= 2 {
						return "", &ai.Error{Kind: tc.kind, Msg: "induced"}
					}
					return "Sounds useful.", nil
				},
				rate: func(int, string) (string, error) { return "4", nil },
			}
			r := NewRater(client, testLogger(t), fastConfig())

			_, err := r.Run(context.Background(), testPersona(), "idea", "question")
			if tc.wantOK && err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !tc.wantOK {
				var pErr *PipelineError
				if !errors.As(err, &pErr) || pErr.Stage != StageElicitation {
					t.Fatalf("Run err = %v, want elicitation PipelineError", err)
				}
			}
			if client.elicitCalls != tc.wantCalls {
				t.Fatalf("elicit calls = %d, want %d", client.elicitCalls, tc.wantCalls)
			}
		})
	}
}

func TestRaterExhaustsRetriesThenFails(t *testing.T) {
	client := &scriptedClient{
		elicit: func(int, string) (string, error) {
			return "", &ai.Error{Kind: ai.KindRateLimited, Status: 429, Msg: "slow down"}
		},
		rate: func(int, string) (string, error) { return "3", nil },
	}
	r := NewRater(client, testLogger(t), fastConfig())

	_, err := r.Run(context.Background(), testPersona(), "idea", "question")
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("Run err = %v, want *PipelineError", err)
	}
	if pErr.Stage != StageElicitation || pErr.Reason != ReasonElicitationError {
		t.Fatalf("failure = %s/%s, want elicitation/elicitation_error", pErr.Stage, pErr.Reason)
	}
	// MaxRetries=2 bounds re-attempts: 1 initial + 2 retries.
	if client.elicitCalls != 3 {
		t.Fatalf("elicit calls = %d, want 3", client.elicitCalls)
	}
	if client.rateCalls != 0 {
		t.Fatalf("rate calls = %d, want 0 after elicitation failure", client.rateCalls)
	}
}

func TestRaterHonorsRetryAfterHint(t *testing.T) {
	client := &scriptedClient{
		elicit: func(call int, _ string) (string, error) {
			if call == 1 {
				return "", &ai.Error{Kind: ai.KindRateLimited, Status: 429, Msg: "slow down", RetryAfter: time.Millisecond}
			}
			return "Could be handy.", nil
		},
		rate: func(int, string) (string, error) { return "3", nil },
	}
	cfg := fastConfig()
	// A pathological schedule; the server hint must take precedence or this
	// test stalls far past its deadline.
	cfg.RetryBackoff = time.Hour

	done := make(chan struct{})
	var got Outcome
	var err error
	go func() {
		r := NewRater(client, testLogger(t), cfg)
		got, err = r.Run(context.Background(), testPersona(), "idea", "question")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not finish; Retry-After hint was ignored in favor of the backoff schedule")
	}
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Likert != 3 {
		t.Fatalf("score = %d, want 3", got.Likert)
	}
	if client.elicitCalls != 2 {
		t.Fatalf("elicit calls = %d, want 2", client.elicitCalls)
	}
}

func TestRaterReportsWrappedCancellation(t *testing.T) {
	client := &scriptedClient{
		elicit: func(int, string) (string, error) {
			// What the transport produces when the caller cancels mid-flight.
			return "", &ai.Error{Kind: ai.KindProviderError, Err: fmt.Errorf("Post \"/chat/completions\": %w", context.Canceled)}
		},
		rate: func(int, string) (string, error) { return "4", nil },
	}
	r := NewRater(client, testLogger(t), fastConfig())

	_, err := r.Run(context.Background(), testPersona(), "idea", "question")
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		t.Fatalf("Run err = %v, want *PipelineError", err)
	}
	if pErr.Reason != ReasonCanceled {
		t.Fatalf("reason = %q, want %q", pErr.Reason, ReasonCanceled)
	}
	if pErr.Stage != StageElicitation {
		t.Fatalf("stage = %s, want elicitation", pErr.Stage)
	}
}
