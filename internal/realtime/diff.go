package realtime

import (
	"encoding/json"
	"sort"
)

// VariableChanges names the variables that changed between two pushed
// lists and the individual value keys that changed inside them.
type VariableChanges struct {
	// ChangedNames holds variables that are new or whose value differs.
	ChangedNames []string
	// ChangedFields holds "name.key" entries for changed value keys of
	// changed variables.
	ChangedFields []string
}

// IsEmpty reports whether nothing changed.
func (v VariableChanges) IsEmpty() bool {
	return len(v.ChangedNames) == 0 && len(v.ChangedFields) == 0
}

// DiffVariables compares two variable lists by name. The first
// population reports nothing, so joining a conversation never flashes
// the panel; afterwards a variable absent from prev counts as changed
// in full, and a variable present in both is compared value by value.
func DiffVariables(prev, curr []Variable) VariableChanges {
	if len(prev) == 0 {
		return VariableChanges{}
	}

	prevByName := make(map[string]Variable, len(prev))
	for _, v := range prev {
		prevByName[v.Name] = v
	}

	var out VariableChanges
	for _, v := range curr {
		old, ok := prevByName[v.Name]
		if !ok {
			out.ChangedNames = append(out.ChangedNames, v.Name)
			for key := range v.Value {
				out.ChangedFields = append(out.ChangedFields, v.Name+"."+key)
			}
			continue
		}
		if jsonEqual(old.Value, v.Value) {
			continue
		}
		out.ChangedNames = append(out.ChangedNames, v.Name)
		for key, val := range v.Value {
			if !jsonEqual(old.Value[key], val) {
				out.ChangedFields = append(out.ChangedFields, v.Name+"."+key)
			}
		}
	}

	sort.Strings(out.ChangedNames)
	sort.Strings(out.ChangedFields)
	return out
}

func jsonEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return errA == nil && errB == nil
	}
	return string(aj) == string(bj)
}
