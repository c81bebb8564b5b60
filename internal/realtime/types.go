// Package realtime implements the push channel that delivers applicant
// snapshot and conversation-variable updates for an active conversation.
//
// The channel is NATS-backed. A client joins one conversation at a time;
// joining subscribes to that conversation's update subject and announces
// the join on a control subject, leaving does the reverse and drops all
// per-conversation state.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lendflow-labs/loanchat/internal/applicant"
)

// Subjects used on the wire.
const (
	// EventVariablesUpdated is the per-conversation update subject,
	// parameterized by conversation ID.
	EventVariablesUpdated = "conversations.%s.session_variables_updated"
	// SubjectJoin and SubjectLeave carry client control messages.
	SubjectJoin  = "conversations.join"
	SubjectLeave = "conversations.leave"
)

// UpdateSubject returns the update subject for a conversation.
func UpdateSubject(conversationID string) string {
	return fmt.Sprintf(EventVariablesUpdated, conversationID)
}

// Variable is one legacy conversation variable record.
type Variable struct {
	ConversationID string         `json:"conversation_id"`
	Name           string         `json:"variable_name"`
	Value          map[string]any `json:"variable_value"`
	CreatedAt      FlexTime       `json:"created_at"`
	UpdatedAt      FlexTime       `json:"updated_at"`
}

// FlexTime decodes timestamps sent either as an RFC3339 string or as a
// Mongo-style {"$date": "..."} wrapper.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return t.parse(s)
	}
	var wrapped struct {
		Date string `json:"$date"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("unsupported timestamp format: %s", data)
	}
	return t.parse(wrapped.Date)
}

func (t *FlexTime) parse(s string) error {
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// pushEvent is the session_variables_updated wire envelope.
type pushEvent struct {
	ConversationID string          `json:"conversation_id"`
	Data           json.RawMessage `json:"data"`
	Operation      string          `json:"operation"`
	Timestamp      string          `json:"timestamp"`
}

// snapshotData is the non-legacy data shape.
type snapshotData struct {
	ApplicantDetails applicant.Details    `json:"applicant_details"`
	StageData        *applicant.StageData `json:"stage_data"`
}

// joinMessage is the control payload for join/leave.
type joinMessage struct {
	ConversationID string `json:"conversation_id"`
}
