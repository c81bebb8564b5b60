package applicant

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Changes is the result of comparing two snapshots. Field identifiers
// are "section.key" strings. All slices are sorted.
type Changes struct {
	NewSections     []string
	ChangedSections []string
	ChangedFields   []string
}

// IsEmpty reports whether nothing changed.
func (c Changes) IsEmpty() bool {
	return len(c.NewSections) == 0 && len(c.ChangedSections) == 0 && len(c.ChangedFields) == 0
}

// Diff compares two snapshots of applicant details.
//
// A nil prev means this is the first snapshot ever received; nothing is
// reported so the panel does not flash on initial population. Field
// order within a section is not semantically meaningful: a section whose
// fields merely moved is not reported.
func Diff(prev, curr Details) Changes {
	if prev == nil {
		return Changes{}
	}

	var changes Changes

	for section := range curr {
		if _, ok := prev[section]; !ok {
			changes.NewSections = append(changes.NewSections, section)
		}
	}

	for section, currFields := range curr {
		prevFields, ok := prev[section]
		if !ok {
			continue
		}

		prevByKey := make(map[string]FieldItem, len(prevFields))
		for _, f := range prevFields {
			prevByKey[f.Key] = f
		}

		sectionChanged := false
		for _, f := range currFields {
			prevField, exists := prevByKey[f.Key]
			if exists && valuesEqual(prevField.Value, f.Value) {
				continue
			}
			changes.ChangedFields = append(changes.ChangedFields, section+"."+f.Key)
			sectionChanged = true
		}
		if sectionChanged {
			changes.ChangedSections = append(changes.ChangedSections, section)
		}
	}

	sort.Strings(changes.NewSections)
	sort.Strings(changes.ChangedSections)
	sort.Strings(changes.ChangedFields)
	return changes
}

// valuesEqual implements the type-aware deep equality for field values.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return false
		}
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true

	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return false
		}
		_, aHasValue := av["value"]
		_, bHasValue := bv["value"]
		if aHasValue && bHasValue {
			// An absent isVerified stays absent: {value:"x"} and
			// {value:"x", isVerified:false} are different states.
			return scalarEqual(av["value"], bv["value"]) &&
				scalarEqual(av["isVerified"], bv["isVerified"])
		}
		return canonicalJSON(av) == canonicalJSON(bv)

	default:
		return scalarEqual(a, b)
	}
}

// scalarEqual compares primitives, normalizing numeric types so a value
// decoded from JSON (float64) matches one set programmatically (int).
func scalarEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// canonicalJSON renders a value with sorted map keys, making the
// structural fallback comparison order-insensitive.
func canonicalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
