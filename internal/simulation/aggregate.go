package simulation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type SentimentCount struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Breakdown is the sentiment distribution over a set of outcomes. Percentages
// carry one decimal and always sum to exactly 100.0; rounding drift is folded
// into the largest bucket.
type Breakdown struct {
	Adopt    SentimentCount `json:"adopt"`
	Mixed    SentimentCount `json:"mixed"`
	NotAdopt SentimentCount `json:"not_adopt"`
	Total    int            `json:"total"`
}

// ErrNoOutcomes is returned instead of emitting a NaN-percentage breakdown
// over zero successful personas.
var ErrNoOutcomes = errors.New("no outcomes to aggregate")

func ComputeBreakdown(outcomes []Outcome) (Breakdown, error) {
	if len(outcomes) == 0 {
		return Breakdown{}, ErrNoOutcomes
	}

	b := Breakdown{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Sentiment {
		case SentimentAdopt:
			b.Adopt.Count++
		case SentimentMixed:
			b.Mixed.Count++
		default:
			b.NotAdopt.Count++
		}
	}

	// Work in tenths of a percent so the sum-to-100.0 adjustment is exact.
	tenths := [3]int{
		roundTenths(b.Adopt.Count, b.Total),
		roundTenths(b.Mixed.Count, b.Total),
		roundTenths(b.NotAdopt.Count, b.Total),
	}
	counts := [3]int{b.Adopt.Count, b.Mixed.Count, b.NotAdopt.Count}
	drift := 1000 - (tenths[0] + tenths[1] + tenths[2])
	if drift != 0 {
		largest := 0
		for i := 1; i < 3; i++ {
			if counts[i] > counts[largest] {
				largest = i
			}
		}
		tenths[largest] += drift
	}
	b.Adopt.Percentage = float64(tenths[0]) / 10
	b.Mixed.Percentage = float64(tenths[1]) / 10
	b.NotAdopt.Percentage = float64(tenths[2]) / 10
	return b, nil
}

func roundTenths(count, total int) int {
	// round(count/total*1000) in integer arithmetic
	return (count*1000*2 + total) / (total * 2)
}

// Tracked attributes for property distributions. Age is reported in bands,
// not raw years.
var trackedAttributes = []string{"age_band", "sex", "income_level", "education", "relationship_status"}

func attributeValue(attrs Attributes, name string) string {
	var v string
	switch name {
	case "age_band":
		v = attrs.AgeBand()
	case "sex":
		v = attrs.Sex
	case "income_level":
		v = attrs.IncomeLevel
	case "education":
		v = attrs.Education
	case "relationship_status":
		v = attrs.RelationshipStatus
	}
	if v == "" {
		return "N/A"
	}
	return v
}

// Summary is everything the dashboard renders for a finished run.
type Summary struct {
	Breakdown Breakdown `json:"sentiment_breakdown"`
	// PropertyDistributions holds, per tracked attribute, the sentiment
	// breakdown restricted to personas sharing each attribute value
	// ("73% adopt among 25-34 year-olds").
	PropertyDistributions map[string]map[string]Breakdown `json:"property_distributions"`
	Recommendation        string                          `json:"recommendation"`
}

// Summarize aggregates a batch's successful outcomes. It is pure and
// order-independent: any permutation of outcomes yields the same Summary.
// Failed personas are absent from outcomes and therefore from every
// denominator here; callers report them separately.
func Summarize(outcomes []Outcome, personas []Persona) (Summary, error) {
	breakdown, err := ComputeBreakdown(outcomes)
	if err != nil {
		return Summary{}, err
	}

	byID := make(map[uuid.UUID]Persona, len(personas))
	for _, p := range personas {
		byID[p.ID] = p
	}

	grouped := map[string]map[string][]Outcome{}
	for _, o := range outcomes {
		p, ok := byID[o.PersonaID]
		if !ok {
			continue
		}
		for _, attr := range trackedAttributes {
			val := attributeValue(p.Attrs, attr)
			if grouped[attr] == nil {
				grouped[attr] = map[string][]Outcome{}
			}
			grouped[attr][val] = append(grouped[attr][val], o)
		}
	}

	distributions := make(map[string]map[string]Breakdown, len(grouped))
	for attr, values := range grouped {
		distributions[attr] = make(map[string]Breakdown, len(values))
		for val, group := range values {
			// Groups are non-empty by construction; ComputeBreakdown cannot
			// fail here.
			gb, gErr := ComputeBreakdown(group)
			if gErr != nil {
				return Summary{}, gErr
			}
			distributions[attr][val] = gb
		}
	}

	return Summary{
		Breakdown:             breakdown,
		PropertyDistributions: distributions,
		Recommendation:        RuleRecommendation(breakdown),
	}, nil
}

// Adopt-percentage thresholds for the deterministic recommendation table.
const (
	HighConfidenceAdoptPct   = 70.0
	MediumConfidenceAdoptPct = 50.0
)

// RuleRecommendation maps the adopt percentage onto a next-step suggestion.
// It is the deterministic fallback when the LLM-written recommendation is
// unavailable, and the confidence baseline either way.
func RuleRecommendation(b Breakdown) string {
	adopt := b.Adopt.Percentage
	switch {
	case adopt >= HighConfidenceAdoptPct:
		return fmt.Sprintf("High confidence: %.1f%% of the simulated cohort would adopt. Proceed to a larger live study and start validating pricing with real prospects.", adopt)
	case adopt >= MediumConfidenceAdoptPct:
		return fmt.Sprintf("Medium confidence: %.1f%% of the simulated cohort would adopt. Sharpen the positioning for the hesitant segments before committing to a launch.", adopt)
	default:
		return fmt.Sprintf("Low confidence: only %.1f%% of the simulated cohort would adopt. Refine the core value proposition or pricing and re-test before investing further.", adopt)
	}
}
