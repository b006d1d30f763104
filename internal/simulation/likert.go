package simulation

import (
	"errors"
	"regexp"
)

type Sentiment string

const (
	SentimentAdopt    Sentiment = "adopt"
	SentimentMixed    Sentiment = "mixed"
	SentimentNotAdopt Sentiment = "not_adopt"
)

// SentimentFor derives the sentiment bucket from a likert score:
// 4-5 adopt, 3 mixed, 1-2 not_adopt.
func SentimentFor(score int) Sentiment {
	switch {
	case score >= 4:
		return SentimentAdopt
	case score == 3:
		return SentimentMixed
	default:
		return SentimentNotAdopt
	}
}

// ErrNoRating means the rating completion carried no parseable 1-5 score.
// The pipeline fails the persona rather than defaulting to a midpoint; a
// silent 3 would mask a bias defect in the rating prompt.
var ErrNoRating = errors.New("no likert rating found in completion")

var (
	// Scale references that must not be mistaken for the rating itself.
	// Only "out of 5" is a scale reference; a bare "of 5" is usually the
	// rating ("my rating of 5") and stripping it would make a top score
	// unparseable.
	scaleRangeRe = regexp.MustCompile(`[1-5]\s*(?:-|–|to)\s*[1-5]`)
	outOfFiveRe  = regexp.MustCompile(`(?i)out\s+of\s+(?:5|five)`)
	slashFiveRe  = regexp.MustCompile(`/\s*5`)
	ratingRe     = regexp.MustCompile(`(?:^|[^0-9])([1-5])(?:[^0-9]|$)`)
)

// ParseLikert extracts the first in-range rating from a completion, anchored
// to the rating token rather than any digit: "a 4 out of 5" parses as 4, the
// trailing "5" is a scale reference.
func ParseLikert(completion string) (int, error) {
	cleaned := scaleRangeRe.ReplaceAllString(completion, " ")
	cleaned = outOfFiveRe.ReplaceAllString(cleaned, " ")
	cleaned = slashFiveRe.ReplaceAllString(cleaned, " ")

	m := ratingRe.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, ErrNoRating
	}
	score := int(m[1][0] - '0')
	if score < 1 || score > 5 {
		return 0, ErrNoRating
	}
	return score, nil
}
