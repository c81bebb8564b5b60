// Package applicant holds the applicant-details snapshot model and the
// change detection between successive snapshots.
package applicant

// FieldItem is one field within an applicant section. Value holds
// JSON-decoded data: a scalar for regular fields, or — in the documents
// section — a list whose elements are bare URL strings or
// {value, isVerified} objects.
type FieldItem struct {
	Label      string `json:"label"`
	Key        string `json:"key"`
	Value      any    `json:"value"`
	IsVerified *bool  `json:"isVerified,omitempty"`
}

// Details maps section names ("personalDetails", "documents", ...) to
// their field lists. Every update from the server is a full snapshot of
// each section, never a patch.
type Details map[string][]FieldItem

// Data is the applicant payload pushed over the realtime channel.
type Data struct {
	ApplicantDetails Details `json:"applicant_details"`
}

// StageData tracks application progress. Updates overwrite wholesale.
type StageData struct {
	CompletedSteps []string `json:"completed_steps"`
	TotalSteps     int      `json:"total_steps"`
}
