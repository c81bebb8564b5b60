// Package docref extracts structured document references from chat text.
//
// The agent embeds file references in plain message text using a side
// protocol of the form field_url='https://...' (single) or
// field_urls="u1", "u2" (multiple). This package parses those references
// and classifies the bot's requests for document uploads.
package docref

import (
	"fmt"
	"regexp"
	"strings"
)

// Field is one extracted file reference.
type Field struct {
	// Name is the raw protocol key, e.g. "aadhaar_card_front_url".
	// Multi-URL fields get a 1-based index suffix, e.g. "salary_slip_urls_2".
	Name string
	// URL is the absolute file URL.
	URL string
}

// Bundle is the parse result for one message.
type Bundle struct {
	// DocumentType is the inferred base type, e.g. "aadhaar_card".
	// Empty means no document field matched.
	DocumentType string
	URLs         []string
	Fields       []Field
}

// HasDocuments reports whether any document field matched.
func (b Bundle) HasDocuments() bool {
	return b.DocumentType != ""
}

var (
	// multiURLPattern: field_urls = "url1", "url2"[, ...] with at least two URLs.
	multiURLPattern = regexp.MustCompile(`(?i)(\w+_urls)\s*=\s*("https?://[^"]+")(?:\s*,\s*("https?://[^"]+"))+`)
	// quotedURLPattern extracts each double-quoted URL inside a multi match.
	quotedURLPattern = regexp.MustCompile(`"(https?://[^"]+)"`)
	// singleURLPattern: field_url='url' or field_urls="url", any quote style.
	singleURLPattern = regexp.MustCompile(`(?i)(\w+_url[s]?)\s*=\s*["']([^"']+)["']`)

	indexSuffix = regexp.MustCompile(`(?i)_\d+$`)
	frontSuffix = regexp.MustCompile(`(?i)_front_url[s]?$`)
	backSuffix  = regexp.MustCompile(`(?i)_back_url[s]?$`)
	urlSuffix   = regexp.MustCompile(`(?i)_url[s]?$`)
)

// Parse extracts document URL references from message text.
//
// The multi-URL rule runs first and consumes its span; the single-URL
// rule skips anything inside an already-consumed span so the same
// reference is never counted twice.
func Parse(text string) Bundle {
	var fields []Field
	var urls []string
	var consumed [][2]int

	for _, m := range multiURLPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		consumed = append(consumed, [2]int{start, end})

		fieldName := text[m[2]:m[3]]
		span := text[start:end]
		for i, um := range quotedURLPattern.FindAllStringSubmatch(span, -1) {
			url := um[1]
			if !strings.HasPrefix(url, "http") {
				continue
			}
			fields = append(fields, Field{
				Name: fmt.Sprintf("%s_%d", fieldName, i+1),
				URL:  url,
			})
			urls = append(urls, url)
		}
	}

	for _, m := range singleURLPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if inConsumed(consumed, start, end) {
			continue
		}
		url := text[m[4]:m[5]]
		if !strings.HasPrefix(url, "http") {
			continue
		}
		fields = append(fields, Field{Name: text[m[2]:m[3]], URL: url})
		urls = append(urls, url)
	}

	if len(fields) == 0 {
		return Bundle{}
	}
	return Bundle{
		DocumentType: inferDocumentType(fields),
		URLs:         urls,
		Fields:       fields,
	}
}

func inConsumed(ranges [][2]int, start, end int) bool {
	for _, r := range ranges {
		if start >= r[0] && end <= r[1] {
			return true
		}
	}
	return false
}

// inferDocumentType derives the bundle type from field names by stripping
// the index and url suffixes. When every field shares the same base, that
// base wins; otherwise the first field's base is used alone.
func inferDocumentType(fields []Field) string {
	base := stripFieldSuffixes(fields[0].Name)
	for _, f := range fields[1:] {
		if stripFieldSuffixes(f.Name) != base {
			return base
		}
	}
	return base
}

func stripFieldSuffixes(name string) string {
	name = indexSuffix.ReplaceAllString(name, "")
	name = frontSuffix.ReplaceAllString(name, "")
	name = backSuffix.ReplaceAllString(name, "")
	name = urlSuffix.ReplaceAllString(name, "")
	return name
}

// FormatDocumentType converts a snake_case type to Title Case for display.
func FormatDocumentType(docType string) string {
	words := strings.Split(docType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// FormatUploadMessage builds the chat transcript text shown after the
// user uploads document sides.
func FormatUploadMessage(frontURL, backURL, docType string) string {
	var parts []string
	if frontURL != "" {
		parts = append(parts, fmt.Sprintf("%s (Front)", docType))
	}
	if backURL != "" {
		parts = append(parts, fmt.Sprintf("%s (Back)", docType))
	}
	return "📎 Uploaded " + strings.Join(parts, " and ")
}

// FormatAPIMessage builds the wire text reporting uploaded document URLs
// back to the agent, e.g. "pan_card_front_url='https://...'".
func FormatAPIMessage(frontURL, backURL, docType string) string {
	key := strings.ReplaceAll(strings.ToLower(docType), " ", "_")
	var parts []string
	if frontURL != "" {
		parts = append(parts, fmt.Sprintf("%s_front_url='%s'", key, frontURL))
	}
	if backURL != "" {
		parts = append(parts, fmt.Sprintf("%s_back_url='%s'", key, backURL))
	}
	return strings.Join(parts, ", ")
}
