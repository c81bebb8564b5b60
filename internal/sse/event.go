// Package sse reads server-sent event streams from the loan-agent backend.
//
// The agent emits lines of the form "data: <json>" terminated either by a
// JSON event of type stream_end/done or by the literal line "data: [DONE]".
// Anything that is not a data line or not JSON is keepalive noise and is
// skipped.
package sse

// Event is a decoded stream event. The wire format is a discriminated
// union keyed on Type, but complete messages may also arrive as bare
// objects carrying only content/text, so all fields are optional.
type Event struct {
	Type     string `json:"type,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Content  string `json:"content,omitempty"`
	Token    string `json:"token,omitempty"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Recognized event types.
const (
	TypeThreadID  = "thread_id"
	TypeToken     = "token"
	TypeMessage   = "message"
	TypeStreamEnd = "stream_end"
	TypeDone      = "done"
)

// TokenText returns the token payload, preferring content over token.
func (e Event) TokenText() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Token
}

// MessageText returns the complete-message payload, preferring content,
// then text, then message.
func (e Event) MessageText() string {
	if e.Content != "" {
		return e.Content
	}
	if e.Text != "" {
		return e.Text
	}
	return e.Message
}

// IsMessage reports whether the event carries a complete message rather
// than a streamed token. An explicit type wins; otherwise any event with
// content or text and no token type counts as a message.
func (e Event) IsMessage() bool {
	if e.Type == TypeMessage {
		return true
	}
	if e.Type != "" {
		return false
	}
	return e.Content != "" || e.Text != ""
}

// IsEnd reports whether the event terminates the token stream.
func (e Event) IsEnd() bool {
	return e.Type == TypeStreamEnd || e.Type == TypeDone
}
