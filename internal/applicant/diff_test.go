package applicant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_FirstSnapshotSilent(t *testing.T) {
	curr := Details{
		"personalDetails": {
			{Label: "Name", Key: "name", Value: "Asha"},
			{Label: "Email", Key: "email", Value: "asha@example.com"},
		},
	}

	changes := Diff(nil, curr)

	assert.True(t, changes.IsEmpty())
}

func TestDiff_NewSection(t *testing.T) {
	prev := Details{
		"personalDetails": {{Key: "name", Value: "Asha"}},
	}
	curr := Details{
		"personalDetails": {{Key: "name", Value: "Asha"}},
		"bankDetails":     {{Key: "ifsc", Value: "ABCD0123"}},
	}

	changes := Diff(prev, curr)

	assert.Equal(t, []string{"bankDetails"}, changes.NewSections)
	assert.Empty(t, changes.ChangedSections)
	assert.Empty(t, changes.ChangedFields)
}

func TestDiff_ChangedScalarField(t *testing.T) {
	prev := Details{
		"personalDetails": {
			{Key: "name", Value: "Asha"},
			{Key: "phone", Value: "9999999999"},
		},
	}
	curr := Details{
		"personalDetails": {
			{Key: "name", Value: "Asha"},
			{Key: "phone", Value: "8888888888"},
		},
	}

	changes := Diff(prev, curr)

	assert.Equal(t, []string{"personalDetails"}, changes.ChangedSections)
	assert.Equal(t, []string{"personalDetails.phone"}, changes.ChangedFields)
	assert.Empty(t, changes.NewSections)
}

func TestDiff_NewFieldInExistingSection(t *testing.T) {
	prev := Details{
		"personalDetails": {{Key: "name", Value: "Asha"}},
	}
	curr := Details{
		"personalDetails": {
			{Key: "name", Value: "Asha"},
			{Key: "email", Value: "asha@example.com"},
		},
	}

	changes := Diff(prev, curr)

	assert.Equal(t, []string{"personalDetails"}, changes.ChangedSections)
	assert.Equal(t, []string{"personalDetails.email"}, changes.ChangedFields)
}

func TestDiff_VerificationFlip(t *testing.T) {
	prev := Details{
		"bankDetails": {
			{Key: "ifsc", Value: map[string]any{"value": "ABCD0123", "isVerified": false}},
		},
	}
	curr := Details{
		"bankDetails": {
			{Key: "ifsc", Value: map[string]any{"value": "ABCD0123", "isVerified": true}},
		},
	}

	changes := Diff(prev, curr)

	assert.Equal(t, []string{"bankDetails"}, changes.ChangedSections)
	assert.Equal(t, []string{"bankDetails.ifsc"}, changes.ChangedFields)
}

func TestDiff_AbsentIsVerifiedDiffersFromFalse(t *testing.T) {
	prev := Details{
		"bankDetails": {
			{Key: "ifsc", Value: map[string]any{"value": "ABCD0123"}},
		},
	}
	curr := Details{
		"bankDetails": {
			{Key: "ifsc", Value: map[string]any{"value": "ABCD0123", "isVerified": false}},
		},
	}

	changes := Diff(prev, curr)

	assert.Equal(t, []string{"bankDetails.ifsc"}, changes.ChangedFields)
}

func TestDiff_DocumentListEquality(t *testing.T) {
	docs := func(verified bool) Details {
		return Details{
			"documents": {
				{Key: "salary_slips", Value: []any{
					"https://x/1.pdf",
					map[string]any{"value": "https://x/2.pdf", "isVerified": verified},
				}},
			},
		}
	}

	assert.True(t, Diff(docs(true), docs(true)).IsEmpty())

	changes := Diff(docs(false), docs(true))
	assert.Equal(t, []string{"documents.salary_slips"}, changes.ChangedFields)
}

func TestDiff_DocumentListLengthChange(t *testing.T) {
	prev := Details{
		"documents": {{Key: "slips", Value: []any{"https://x/1.pdf"}}},
	}
	curr := Details{
		"documents": {{Key: "slips", Value: []any{"https://x/1.pdf", "https://x/2.pdf"}}},
	}

	changes := Diff(prev, curr)

	assert.Equal(t, []string{"documents"}, changes.ChangedSections)
}

func TestDiff_FieldOrderDoesNotMatter(t *testing.T) {
	prev := Details{
		"personalDetails": {
			{Key: "name", Value: "Asha"},
			{Key: "email", Value: "asha@example.com"},
		},
	}
	curr := Details{
		"personalDetails": {
			{Key: "email", Value: "asha@example.com"},
			{Key: "name", Value: "Asha"},
		},
	}

	assert.True(t, Diff(prev, curr).IsEmpty())
}

func TestDiff_RemovedSectionNotReported(t *testing.T) {
	prev := Details{
		"personalDetails": {{Key: "name", Value: "Asha"}},
		"bankDetails":     {{Key: "ifsc", Value: "ABCD0123"}},
	}
	curr := Details{
		"personalDetails": {{Key: "name", Value: "Asha"}},
	}

	assert.True(t, Diff(prev, curr).IsEmpty())
}

func TestDiff_NumericValuesAcrossDecodings(t *testing.T) {
	// A snapshot decoded from JSON carries float64; one built in code may
	// carry int. Equal amounts must not read as changes.
	prev := Details{
		"loanDetails": {{Key: "amount", Value: float64(250000)}},
	}
	curr := Details{
		"loanDetails": {{Key: "amount", Value: 250000}},
	}

	assert.True(t, Diff(prev, curr).IsEmpty())
}

func TestDiff_NullHandling(t *testing.T) {
	prev := Details{
		"personalDetails": {{Key: "middleName", Value: nil}},
	}

	assert.True(t, Diff(prev, Details{
		"personalDetails": {{Key: "middleName", Value: nil}},
	}).IsEmpty())

	changes := Diff(prev, Details{
		"personalDetails": {{Key: "middleName", Value: "Kumar"}},
	})
	assert.Equal(t, []string{"personalDetails.middleName"}, changes.ChangedFields)
}

func TestDiff_StructuralFallbackIsKeyOrderInsensitive(t *testing.T) {
	prev := Details{
		"addressDetails": {{Key: "home", Value: map[string]any{"city": "Pune", "pin": "411001"}}},
	}
	curr := Details{
		"addressDetails": {{Key: "home", Value: map[string]any{"pin": "411001", "city": "Pune"}}},
	}

	assert.True(t, Diff(prev, curr).IsEmpty())
}

func TestDiff_RoundTripThroughJSON(t *testing.T) {
	raw := `{
		"bankDetails": [
			{"label": "IFSC", "key": "ifsc", "value": {"value": "ABCD0123", "isVerified": false}}
		],
		"documents": [
			{"label": "Slips", "key": "slips", "value": ["https://x/1.pdf"]}
		]
	}`
	var prev Details
	require.NoError(t, json.Unmarshal([]byte(raw), &prev))

	updated := `{
		"bankDetails": [
			{"label": "IFSC", "key": "ifsc", "value": {"value": "ABCD0123", "isVerified": true}}
		],
		"documents": [
			{"label": "Slips", "key": "slips", "value": ["https://x/1.pdf"]}
		]
	}`
	var curr Details
	require.NoError(t, json.Unmarshal([]byte(updated), &curr))

	changes := Diff(prev, curr)
	assert.Equal(t, []string{"bankDetails"}, changes.ChangedSections)
	assert.Equal(t, []string{"bankDetails.ifsc"}, changes.ChangedFields)
}

func TestFieldItem_JSONShape(t *testing.T) {
	raw := `{"label": "PAN", "key": "pan", "value": "ABCDE1234F", "isVerified": true}`
	var f FieldItem
	require.NoError(t, json.Unmarshal([]byte(raw), &f))

	assert.Equal(t, "pan", f.Key)
	assert.Equal(t, "ABCDE1234F", f.Value)
	require.NotNil(t, f.IsVerified)
	assert.True(t, *f.IsVerified)
}
