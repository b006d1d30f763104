package simulation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Attributes is a persona's attribute bag: the fields the generator is
// required to emit, plus a free-form extension map for anything else the
// generator happened to produce. Known fields drive property distributions;
// Extra is carried through untouched.
type Attributes struct {
	PersonaName        string `json:"persona_name"`
	Age                int    `json:"age"`
	Sex                string `json:"sex"`
	Occupation         string `json:"occupation"`
	Income             string `json:"income"`
	IncomeLevel        string `json:"income_level"`
	Education          string `json:"education"`
	CityCountry        string `json:"city_country"`
	BirthCityCountry   string `json:"birth_city_country"`
	RelationshipStatus string `json:"relationship_status"`

	Extra map[string]any `json:"-"`
}

var knownAttributeKeys = map[string]bool{
	"persona_name":        true,
	"age":                 true,
	"sex":                 true,
	"occupation":          true,
	"income":              true,
	"income_level":        true,
	"education":           true,
	"city_country":        true,
	"birth_city_country":  true,
	"relationship_status": true,
}

func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type plain Attributes
	var p plain
	// Age tolerates string values from the generator ("28").
	if ageRaw, ok := raw["age"]; ok {
		var s string
		if err := json.Unmarshal(ageRaw, &s); err == nil {
			if n, convErr := strconv.Atoi(strings.TrimSpace(s)); convErr == nil {
				p.Age = n
				delete(raw, "age")
			}
		}
	}
	rest, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(rest, &p); err != nil {
		return err
	}
	*a = Attributes(p)

	for key, val := range raw {
		if knownAttributeKeys[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			return err
		}
		if a.Extra == nil {
			a.Extra = map[string]any{}
		}
		a.Extra[key] = v
	}
	return nil
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 10+len(a.Extra))
	for k, v := range a.Extra {
		if !knownAttributeKeys[k] {
			out[k] = v
		}
	}
	out["persona_name"] = a.PersonaName
	out["age"] = a.Age
	out["sex"] = a.Sex
	out["occupation"] = a.Occupation
	out["income"] = a.Income
	out["income_level"] = a.IncomeLevel
	out["education"] = a.Education
	out["city_country"] = a.CityCountry
	out["birth_city_country"] = a.BirthCityCountry
	out["relationship_status"] = a.RelationshipStatus
	return json.Marshal(out)
}

// AgeBand buckets a raw age into the ranges the dashboard reports on.
func (a Attributes) AgeBand() string {
	switch {
	case a.Age <= 0:
		return "unknown"
	case a.Age < 18:
		return "under 18"
	case a.Age < 25:
		return "18-24"
	case a.Age < 35:
		return "25-34"
	case a.Age < 45:
		return "35-44"
	case a.Age < 55:
		return "45-54"
	case a.Age < 65:
		return "55-64"
	default:
		return "65+"
	}
}

// Persona is the pipeline's read-only view of one cohort member.
type Persona struct {
	ID    uuid.UUID
	Name  string
	Attrs Attributes
}

// sortedExtraKeys keeps profile serialization deterministic: the same persona
// always produces the same prompt text.
func (a Attributes) sortedExtraKeys() []string {
	keys := make([]string, 0, len(a.Extra))
	for k := range a.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatAttributeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		if strings.TrimSpace(t) == "" {
			return "N/A"
		}
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, formatAttributeValue(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
