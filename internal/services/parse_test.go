package services

import (
	"strings"
	"testing"
)

func TestParsePersonaBatch(t *testing.T) {
	plain := `[
		{"persona_name": "Alex Chen", "age": 28, "sex": "Male", "income_level": "high", "occupation": "Software Engineer"},
		{"persona_name": "Rosa Diaz", "age": "41", "sex": "Female", "income_level": "low", "hobbies": "pottery"}
	]`

	cases := []struct {
		name string
		in   string
	}{
		{name: "plain array", in: plain},
		{name: "json code fence", in: "```json\n" + plain + "\n```"},
		{name: "bare code fence", in: "```\n" + plain + "\n```"},
		{name: "surrounding whitespace", in: "\n\n  " + plain + "  \n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attrs, err := ParsePersonaBatch(tc.in)
			if err != nil {
				t.Fatalf("ParsePersonaBatch: %v", err)
			}
			if len(attrs) != 2 {
				t.Fatalf("parsed %d personas, want 2", len(attrs))
			}
			if attrs[0].PersonaName != "Alex Chen" || attrs[0].Age != 28 {
				t.Errorf("persona 0 = %+v", attrs[0])
			}
			if attrs[1].Age != 41 {
				t.Errorf("string age not coerced: %+v", attrs[1])
			}
			if attrs[1].Extra["hobbies"] != "pottery" {
				t.Errorf("extra attribute lost: %+v", attrs[1].Extra)
			}
		})
	}
}

func TestParsePersonaBatchRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{name: "not json", in: "Here are your personas!"},
		{name: "object not array", in: `{"persona_name": "Alex"}`},
		{name: "missing name", in: `[{"age": 30}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePersonaBatch(tc.in); err == nil {
				t.Fatalf("ParsePersonaBatch(%q) succeeded, want error", tc.in)
			}
		})
	}
}

func TestParseRecommendation(t *testing.T) {
	body := `{"short_title": "Premium tier pilot", "recommendation": "Anchor marketing on the meal planner and pilot a $12/month premium tier."}`

	for _, in := range []string{body, "```json\n" + body + "\n```"} {
		title, rec, err := ParseRecommendation(in)
		if err != nil {
			t.Fatalf("ParseRecommendation: %v", err)
		}
		if title != "Premium tier pilot" {
			t.Errorf("title = %q", title)
		}
		if !strings.Contains(rec, "meal planner") {
			t.Errorf("recommendation = %q", rec)
		}
	}
}

func TestParseRecommendationRejectsBadPayloads(t *testing.T) {
	for _, in := range []string{"not json", `{"short_title": "X"}`, `{"short_title": "X", "recommendation": "  "}`} {
		if _, _, err := ParseRecommendation(in); err == nil {
			t.Fatalf("ParseRecommendation(%q) succeeded, want error", in)
		}
	}
}
