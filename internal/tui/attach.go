package tui

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lendflow-labs/loanchat/internal/docref"
	"github.com/lendflow-labs/loanchat/internal/upload"
)

// parseAttachCommand recognizes "/attach <path> [path...]".
func parseAttachCommand(text string) ([]string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/attach") {
		return nil, false
	}
	paths := strings.Fields(strings.TrimPrefix(trimmed, "/attach"))
	return paths, true
}

// attach uploads the named files and reports their URLs to the agent as
// document references. The document type comes from the bot's most
// recent upload request; a plain attach falls back to "Document".
func (m Model) attach(paths []string) tea.Cmd {
	req := m.lastUploadRequest()
	return func() tea.Msg {
		if m.uploader == nil {
			return attachFailedMsg{reason: "Uploads are not configured. Set upload.base_url in the config."}
		}
		if len(paths) == 0 {
			return attachFailedMsg{reason: "Usage: /attach <file> [file...]"}
		}

		files := make([]upload.File, 0, len(paths))
		for _, path := range paths {
			content, err := os.ReadFile(path)
			if err != nil {
				return attachFailedMsg{reason: fmt.Sprintf("Cannot read %s: %v", path, err)}
			}
			contentType := contentTypeForPath(path)
			name := filepath.Base(path)
			if err := m.uploader.ValidateDocument(name, int64(len(content)), contentType); err != nil {
				return attachFailedMsg{reason: err.Error()}
			}
			files = append(files, upload.File{Name: name, Content: content, ContentType: contentType})
		}

		results := m.uploader.UploadBatch(context.Background(), files)
		urls := make([]string, 0, len(results))
		for _, res := range results {
			if res.Err != nil {
				m.logger.Warn("attachment upload failed",
					zap.String("name", res.Name), zap.Error(res.Err))
				continue
			}
			urls = append(urls, res.Result.CleanURL)
		}
		if len(urls) == 0 {
			return attachFailedMsg{reason: "Upload failed. Please try again."}
		}

		err := m.reconciler.SendMessage(context.Background(), "", documentReferences(req, urls))
		return streamFinishedMsg{err: err}
	}
}

// documentReferences builds the wire lines reporting uploaded URLs, keyed
// by the requested document type.
func documentReferences(req docref.UploadRequest, urls []string) []string {
	docType := req.DocumentType
	if docType == "" {
		docType = "Document"
	}

	// Two files for a front/back request map to the paired form.
	if len(urls) == 2 && len(req.Sides) == 2 {
		return []string{docref.FormatAPIMessage(urls[0], urls[1], docType)}
	}
	if len(urls) == 1 {
		return []string{docref.FormatAPIMessage(urls[0], "", docType)}
	}

	key := strings.ReplaceAll(strings.ToLower(docType), " ", "_")
	refs := make([]string, 0, len(urls))
	for i, u := range urls {
		refs = append(refs, fmt.Sprintf("%s_url_%d='%s'", key, i+1, u))
	}
	return refs
}

// lastUploadRequest classifies the bot's most recent message.
func (m Model) lastUploadRequest() docref.UploadRequest {
	msgs := m.reconciler.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsBot {
			return docref.DetectUploadRequest(msgs[i].Text)
		}
	}
	return docref.UploadRequest{}
}

func contentTypeForPath(path string) string {
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		return "application/octet-stream"
	}
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
