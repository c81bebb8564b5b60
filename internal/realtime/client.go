package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/lendflow-labs/loanchat/internal/applicant"
)

// ErrNotConnected is returned when an operation needs a live connection.
var ErrNotConnected = errors.New("realtime client not connected")

// Callbacks receives push-channel notifications. Any field may be nil.
// One Callbacks value belongs to one Client; consumers wanting separate
// handlers create separate clients rather than sharing a mutable
// callback registry.
type Callbacks struct {
	OnApplicantData func(applicant.Data)
	OnVariables     func([]Variable)
	OnStageData     func(applicant.StageData)
	OnConnected     func()
	OnDisconnected  func()
	OnError         func(error)
}

// Client is a push-channel client scoped to one conversation at a time.
type Client struct {
	nc        *nats.Conn
	ownedConn bool
	callbacks Callbacks
	logger    *zap.Logger

	mu             sync.Mutex
	conversationID string
	sub            *nats.Subscription
	variables      map[string]Variable
}

// Connect dials the NATS server and returns a client. The connection is
// owned by the client and closed with it.
func Connect(url string, cb Callbacks, logger *zap.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.ReconnectHandler(func(*nats.Conn) {
			if cb.OnConnected != nil {
				cb.OnConnected()
			}
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if cb.OnDisconnected != nil {
				cb.OnDisconnected()
			}
			if err != nil && cb.OnError != nil {
				cb.OnError(err)
			}
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect realtime channel: %w", err)
	}

	c := NewClient(nc, cb, logger)
	c.ownedConn = true
	if cb.OnConnected != nil {
		cb.OnConnected()
	}
	return c, nil
}

// NewClient wraps an established connection. The caller keeps ownership
// of the connection; Close will not close it.
func NewClient(nc *nats.Conn, cb Callbacks, logger *zap.Logger) *Client {
	return &Client{
		nc:        nc,
		callbacks: cb,
		logger:    logger,
		variables: make(map[string]Variable),
	}
}

// JoinConversation subscribes to a conversation's updates and announces
// the join. Joining while another conversation is active leaves it
// first.
func (c *Client) JoinConversation(conversationID string) error {
	if c.nc == nil || !c.nc.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conversationID != "" {
		if err := c.leaveLocked(); err != nil {
			return err
		}
	}

	sub, err := c.nc.Subscribe(UpdateSubject(conversationID), c.onMessage)
	if err != nil {
		return fmt.Errorf("subscribe conversation %s: %w", conversationID, err)
	}

	payload, _ := json.Marshal(joinMessage{ConversationID: conversationID})
	if err := c.nc.Publish(SubjectJoin, payload); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("announce join: %w", err)
	}

	c.conversationID = conversationID
	c.sub = sub
	c.logger.Info("joined conversation", zap.String("conversation_id", conversationID))
	return nil
}

// LeaveConversation unsubscribes and clears all cached per-conversation
// state so nothing leaks into a subsequently joined conversation.
func (c *Client) LeaveConversation() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaveLocked()
}

func (c *Client) leaveLocked() error {
	if c.conversationID == "" {
		return nil
	}

	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warn("unsubscribe failed", zap.Error(err))
		}
		c.sub = nil
	}

	payload, _ := json.Marshal(joinMessage{ConversationID: c.conversationID})
	if c.nc != nil && c.nc.IsConnected() {
		if err := c.nc.Publish(SubjectLeave, payload); err != nil {
			c.logger.Warn("announce leave failed", zap.Error(err))
		}
	}

	c.logger.Info("left conversation", zap.String("conversation_id", c.conversationID))
	c.conversationID = ""
	c.variables = make(map[string]Variable)
	return nil
}

// Variables returns the cached conversation variables, sorted by name.
func (c *Client) Variables() []Variable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variablesLocked()
}

func (c *Client) variablesLocked() []Variable {
	out := make([]Variable, 0, len(c.variables))
	for _, v := range c.variables {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close leaves any joined conversation and, when the client owns the
// connection, closes it.
func (c *Client) Close() {
	_ = c.LeaveConversation()
	if c.ownedConn && c.nc != nil {
		c.nc.Close()
	}
	if c.callbacks.OnDisconnected != nil {
		c.callbacks.OnDisconnected()
	}
}

// onMessage decodes one session_variables_updated event. Malformed
// payloads are logged and dropped; the channel must survive anything
// the server sends.
func (c *Client) onMessage(msg *nats.Msg) {
	var ev pushEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		c.logger.Warn("malformed push event", zap.Error(err))
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(err)
		}
		return
	}

	c.mu.Lock()
	joined := c.conversationID
	c.mu.Unlock()
	if ev.ConversationID != "" && joined != "" && ev.ConversationID != joined {
		c.logger.Debug("ignoring event for other conversation",
			zap.String("event_conversation", ev.ConversationID))
		return
	}

	if len(ev.Data) == 0 {
		c.logger.Warn("push event without data", zap.String("operation", ev.Operation))
		return
	}

	// Legacy shape first: an array of variable records.
	var records []Variable
	if err := json.Unmarshal(ev.Data, &records); err == nil {
		c.handleVariableRecords(records)
		return
	}

	var snap snapshotData
	if err := json.Unmarshal(ev.Data, &snap); err != nil {
		c.logger.Warn("unrecognized push data shape", zap.Error(err))
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(err)
		}
		return
	}

	if snap.ApplicantDetails != nil && c.callbacks.OnApplicantData != nil {
		c.callbacks.OnApplicantData(applicant.Data{ApplicantDetails: snap.ApplicantDetails})
	}
	if snap.StageData != nil && c.callbacks.OnStageData != nil {
		c.callbacks.OnStageData(*snap.StageData)
	}
}

// handleVariableRecords merges records into the cache and delivers the
// full current list.
func (c *Client) handleVariableRecords(records []Variable) {
	c.mu.Lock()
	for _, r := range records {
		if r.Name == "" {
			continue
		}
		c.variables[r.Name] = r
	}
	all := c.variablesLocked()
	c.mu.Unlock()

	if c.callbacks.OnVariables != nil {
		c.callbacks.OnVariables(all)
	}
}
