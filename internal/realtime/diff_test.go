package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func variable(name string, value map[string]any) Variable {
	return Variable{Name: name, Value: value}
}

func TestDiffVariables_NewVariable(t *testing.T) {
	prev := []Variable{variable("loan_amount", map[string]any{"value": 50000})}
	curr := []Variable{
		variable("loan_amount", map[string]any{"value": 50000}),
		variable("tenure", map[string]any{"value": 24, "unit": "months"}),
	}

	changes := DiffVariables(prev, curr)
	assert.Equal(t, []string{"tenure"}, changes.ChangedNames)
	assert.Equal(t, []string{"tenure.unit", "tenure.value"}, changes.ChangedFields)
}

func TestDiffVariables_ChangedValueKey(t *testing.T) {
	prev := []Variable{variable("loan_amount", map[string]any{"value": 50000, "currency": "INR"})}
	curr := []Variable{variable("loan_amount", map[string]any{"value": 75000, "currency": "INR"})}

	changes := DiffVariables(prev, curr)
	assert.Equal(t, []string{"loan_amount"}, changes.ChangedNames)
	// Only the key that actually changed is animated.
	assert.Equal(t, []string{"loan_amount.value"}, changes.ChangedFields)
}

func TestDiffVariables_Unchanged(t *testing.T) {
	prev := []Variable{variable("status", map[string]any{"value": "active"})}
	curr := []Variable{variable("status", map[string]any{"value": "active"})}

	changes := DiffVariables(prev, curr)
	assert.True(t, changes.IsEmpty())
}

func TestDiffVariables_NumericEncodingEquivalent(t *testing.T) {
	// The same payload decoded twice yields float64 both times, but a
	// locally constructed int must still compare equal via JSON text.
	prev := []Variable{variable("tenure", map[string]any{"value": 24})}
	curr := []Variable{variable("tenure", map[string]any{"value": float64(24)})}

	changes := DiffVariables(prev, curr)
	assert.True(t, changes.IsEmpty())
}

func TestDiffVariables_NestedValueCompare(t *testing.T) {
	prev := []Variable{variable("address", map[string]any{
		"value": map[string]any{"city": "Pune", "pin": "411001"},
	})}
	curr := []Variable{variable("address", map[string]any{
		"value": map[string]any{"city": "Pune", "pin": "411038"},
	})}

	changes := DiffVariables(prev, curr)
	assert.Equal(t, []string{"address"}, changes.ChangedNames)
	assert.Equal(t, []string{"address.value"}, changes.ChangedFields)
}

func TestDiffVariables_FirstPopulationIsSilent(t *testing.T) {
	curr := []Variable{
		variable("b", map[string]any{"value": 1}),
		variable("a", map[string]any{"value": 2}),
	}

	// Joining a conversation delivers the existing variables; none of
	// them should flash.
	assert.True(t, DiffVariables(nil, curr).IsEmpty())
	assert.True(t, DiffVariables([]Variable{}, curr).IsEmpty())
}

func TestDiffVariables_RemovedVariableSilent(t *testing.T) {
	prev := []Variable{variable("old", map[string]any{"value": 1})}

	changes := DiffVariables(prev, nil)
	assert.True(t, changes.IsEmpty())
}
