package docref

import "regexp"

// UploadRequest classifies bot text that asks the user for a document.
type UploadRequest struct {
	// DocumentType is a display name like "Bank Statement"; empty when
	// the text is not an upload request.
	DocumentType    string
	IsUploadRequest bool
	// Sides lists the requested document sides where that applies.
	Sides []string
}

var uploadVerbPattern = regexp.MustCompile(`(?i)upload|attach|send|provide|share|submit`)

// documentPatterns are checked in order; the first match wins, so the
// specific types stay ahead of the generic fallback.
var documentPatterns = []struct {
	pattern *regexp.Regexp
	docType string
}{
	{
		pattern: regexp.MustCompile(`(?i)(?:upload|attach|send|provide|share|submit).*?(?:proof.*?of.*?income|income.*?proof|income.*?statement|income.*?document)|(?:proof.*?of.*?income|income.*?proof).*?(?:photo|image|picture|document|pdf)`),
		docType: "Proof of Income",
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:upload|attach|send|provide|share|submit).*?bank.*?statement|bank.*?statement.*?(?:photo|image|picture)`),
		docType: "Bank Statement",
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:upload|attach|send|provide|share|submit).*?(?:salary.*?slip|pay.*?slip|payslip)|(?:salary.*?slip|pay.*?slip|payslip).*?(?:photo|image|picture)`),
		docType: "Salary Slip",
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:upload|attach|send|provide|share|submit).*?(?:photo|selfie|picture|image).*?(?:yourself|verification|identity)|(?:photo|selfie|picture|image).*?(?:for\s+verification|of\s+yourself|of\s+you(?:\s|$))|(?:upload|attach|send|provide|share|submit).*?(?:your|a|the)?\s*(?:photo|selfie)`),
		docType: "Photo",
	},
}

// photoIDPattern guards the Photo type: "photo id" / "photo card" are
// identity documents, not selfie requests.
var photoIDPattern = regexp.MustCompile(`(?i)(?:photo|selfie)\s*(?:id|card)`)

var genericDocumentPattern = regexp.MustCompile(`(?i)(?:upload|attach|send|provide|share|submit).*?(?:document|doc|photo|image|picture|file)`)

// DetectUploadRequest classifies bot text asking the user to supply a
// document. This is a best-effort keyword classifier, not a parser;
// misclassification of unusual phrasings is expected.
func DetectUploadRequest(text string) UploadRequest {
	if !uploadVerbPattern.MatchString(text) {
		return UploadRequest{}
	}

	for _, dp := range documentPatterns {
		if !dp.pattern.MatchString(text) {
			continue
		}
		if dp.docType == "Photo" && photoIDPattern.MatchString(text) {
			continue
		}
		return UploadRequest{
			DocumentType:    dp.docType,
			IsUploadRequest: true,
		}
	}

	if genericDocumentPattern.MatchString(text) {
		return UploadRequest{
			DocumentType:    "Document",
			IsUploadRequest: true,
			Sides:           []string{"front"},
		}
	}

	return UploadRequest{}
}
