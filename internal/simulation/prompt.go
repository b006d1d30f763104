package simulation

import (
	"fmt"
	"strings"
)

// Prompt construction is pure: identical inputs always yield identical
// prompts, so completions can be cached and tests can assert on exact text.

const elicitationSystem = "You are a participant in a consumer research survey."

const ratingSystem = "You are a Likert Rating Expert. Respond ONLY with a single number (1, 2, 3, 4, or 5). Do not include any other text."

// FormatProfile serializes a persona's attribute bag into the readable block
// embedded in the elicitation prompt. Known fields come first in a fixed
// order, generator-supplied extras follow in sorted key order.
func FormatProfile(attrs Attributes) string {
	var lines []string
	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			value = "N/A"
		}
		lines = append(lines, label+": "+value)
	}

	add("Persona Name", attrs.PersonaName)
	if attrs.Age > 0 {
		add("Age", fmt.Sprintf("%d", attrs.Age))
	} else {
		add("Age", "N/A")
	}
	add("Sex", attrs.Sex)
	add("Occupation", attrs.Occupation)
	add("Income", attrs.Income)
	add("Income Level", attrs.IncomeLevel)
	add("Education", attrs.Education)
	add("City Country", attrs.CityCountry)
	add("Birth City Country", attrs.BirthCityCountry)
	add("Relationship Status", attrs.RelationshipStatus)

	for _, key := range attrs.sortedExtraKeys() {
		add(titleCaseKey(key), formatAttributeValue(attrs.Extra[key]))
	}
	return strings.Join(lines, "\n")
}

func titleCaseKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ElicitationPrompt asks the persona for a free-text purchase-intent
// statement. Numeric ratings are explicitly forbidden here; scoring happens
// in the second stage.
func ElicitationPrompt(profile, ideaText, questionText string) string {
	return fmt.Sprintf(`You must impersonate the provided consumer profile and only respond with a brief, honest textual statement of your purchase intent. Do not use numerical ratings. Do not offer definitions of the Likert scale. Keep your response to 2-4 sentences maximum.

Profile:
%s

Marketing Content: %s

Question: %s`, profile, ideaText, questionText)
}

// RatingPrompt maps a consumer statement onto the 1-5 scale. The intensity
// guide plus the worked examples spanning all five scores are load-bearing:
// without anchors at both extremes the model collapses toward 3.
func RatingPrompt(statement string) string {
	return fmt.Sprintf(`You are a Likert Rating Expert. Analyze the consumer statement and assign a purchase intent score from 1-5.

Assign a score from 1-5 based on the consumer's sentiment, using the following intensity guide to ensure distribution across the entire scale:

--- INTENSITY GUIDE ---
- If the statement indicates strong intent, excitement, or a perfect fit: SCORE 5
- If the statement indicates a clear functional need, positive intent, and little friction: SCORE 4
- If the statement is neutral, highlights major trade-offs, or expresses uncertainty/doubt: SCORE 3
- If the statement suggests high friction, major trust issues, or a preference for an alternative: SCORE 2
- If the statement expresses immediate dismissal, outright rejection, or irrelevance: SCORE 1
---

--- EXAMPLES ---
Statement: "This is exactly what I have been looking for, I would sign up today." -> 5
Statement: "I could definitely see myself using this, the price seems fair for what it does." -> 4
Statement: "It sounds interesting but I am not sure it solves a problem I actually have." -> 3
Statement: "I already use something similar and I do not trust a new company with my data." -> 2
Statement: "This is completely irrelevant to me, I would never pay for it." -> 1
---

Consumer statement: %s

Respond with ONLY a single number (1, 2, 3, 4, or 5). No explanation needed.`, statement)
}

// StrictRatingPrompt is the tightened reformulation used once after the
// first rating completion fails to parse.
func StrictRatingPrompt(statement string) string {
	return fmt.Sprintf(`Score the following consumer statement for purchase intent.

Statement: %s

Reply with exactly one character: 1, 2, 3, 4 or 5. 5 means certain to purchase, 1 means certain not to purchase. Output nothing else.`, statement)
}

const recommendationSystemTemplate = `You are a Senior Business Strategy Consultant. Your task is to synthesize the provided market research data into a single, highly actionable growth recommendation.

Product Idea:
"""
%s
"""

Market Sentiment Breakdown:
%s

Action Mandate (strictly follow these requirements):
1. Identify Lead Feature: name the best single feature or key selling point to anchor all marketing efforts.
2. Improvement Plan: if the overall 'Adopt' percentage is below 50%%, propose one concrete feature or positioning improvement.
3. Targets & Pricing: specify a measurable onboarding target and suggest a specific pricing approach to test.
4. Success Metrics: list 2-3 specific, instrumentable success metrics.

The final recommendation MUST be a continuous paragraph, strictly between 80 and 140 words.`

const recommendationUser = `Output MUST be a single JSON object with EXACTLY two keys and types: {"short_title": string, "recommendation": string}. Do NOT include arrays, additional keys, comments, markdown code fences, or any text outside the JSON. short_title is a concise experiment title (max 8 words). recommendation should strictly follow the Action Mandate and be kept between 80-140 words.`

// RecommendationPrompts builds the system and user prompts for the optional
// LLM-written recommendation over a finished run's statistics.
func RecommendationPrompts(ideaText string, b Breakdown) (system, user string) {
	breakdownLines := []string{
		fmt.Sprintf("- Adopt: %.1f%% (%d responses)", b.Adopt.Percentage, b.Adopt.Count),
		fmt.Sprintf("- Mixed: %.1f%% (%d responses)", b.Mixed.Percentage, b.Mixed.Count),
		fmt.Sprintf("- Not Adopt: %.1f%% (%d responses)", b.NotAdopt.Percentage, b.NotAdopt.Count),
	}
	system = fmt.Sprintf(recommendationSystemTemplate, ideaText, strings.Join(breakdownLines, "\n"))
	return system, recommendationUser
}
