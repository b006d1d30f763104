package simulation

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAttributesUnmarshalSplitsExtras(t *testing.T) {
	raw := `{
		"persona_name": "Maya Chen",
		"age": 29,
		"sex": "female",
		"occupation": "UX designer",
		"income": "$85,000",
		"income_level": "Medium",
		"education": "Bachelor's",
		"city_country": "Austin, USA",
		"birth_city_country": "Taipei, Taiwan",
		"relationship_status": "single",
		"hobbies": "climbing",
		"pet_owner": true
	}`
	var a Attributes
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.PersonaName != "Maya Chen" || a.Age != 29 || a.IncomeLevel != "Medium" {
		t.Fatalf("known fields not populated: %+v", a)
	}
	if len(a.Extra) != 2 {
		t.Fatalf("Extra = %v, want exactly the two unknown keys", a.Extra)
	}
	if a.Extra["hobbies"] != "climbing" {
		t.Errorf("Extra[hobbies] = %v, want climbing", a.Extra["hobbies"])
	}
	if _, known := a.Extra["age"]; known {
		t.Errorf("known key leaked into Extra: %v", a.Extra)
	}
}

func TestAttributesUnmarshalAgeAsString(t *testing.T) {
	var a Attributes
	if err := json.Unmarshal([]byte(`{"persona_name":"X","age":"34"}`), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.Age != 34 {
		t.Fatalf("Age = %d, want 34", a.Age)
	}
}

func TestAttributesMarshalRoundTrip(t *testing.T) {
	in := Attributes{
		PersonaName: "Maya Chen",
		Age:         29,
		Sex:         "female",
		Extra:       map[string]any{"hobbies": "climbing"},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Attributes
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.PersonaName != in.PersonaName || out.Age != in.Age || out.Sex != in.Sex {
		t.Fatalf("round trip lost known fields: %+v", out)
	}
	if out.Extra["hobbies"] != "climbing" {
		t.Fatalf("round trip lost extras: %v", out.Extra)
	}
}

func TestAgeBand(t *testing.T) {
	cases := []struct {
		age  int
		want string
	}{
		{0, "unknown"},
		{-3, "unknown"},
		{17, "under 18"},
		{18, "18-24"},
		{24, "18-24"},
		{25, "25-34"},
		{34, "25-34"},
		{44, "35-44"},
		{54, "45-54"},
		{64, "55-64"},
		{65, "65+"},
		{90, "65+"},
	}
	for _, tc := range cases {
		a := Attributes{Age: tc.age}
		if got := a.AgeBand(); got != tc.want {
			t.Errorf("AgeBand(%d) = %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestFormatProfileDeterministic(t *testing.T) {
	a := Attributes{
		PersonaName: "Maya Chen",
		Age:         29,
		Occupation:  "UX designer",
		Extra:       map[string]any{"zeta": "last", "alpha": "first"},
	}
	first := FormatProfile(a)
	for i := 0; i < 20; i++ {
		if got := FormatProfile(a); got != first {
			t.Fatalf("FormatProfile is not deterministic:\n%s\nvs\n%s", first, got)
		}
	}

	lines := strings.Split(first, "\n")
	if lines[0] != "Persona Name: Maya Chen" {
		t.Errorf("first line = %q, want persona name", lines[0])
	}
	alphaIdx, zetaIdx := -1, -1
	for i, line := range lines {
		if strings.HasPrefix(line, "Alpha:") {
			alphaIdx = i
		}
		if strings.HasPrefix(line, "Zeta:") {
			zetaIdx = i
		}
	}
	if alphaIdx == -1 || zetaIdx == -1 || alphaIdx > zetaIdx {
		t.Errorf("extras not in sorted order:\n%s", first)
	}
	if !strings.Contains(first, "Income Level: N/A") {
		t.Errorf("missing field not rendered as N/A:\n%s", first)
	}
}
