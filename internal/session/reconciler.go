// Package session reconciles the agent's token stream into an ordered
// chat transcript.
//
// A Reconciler owns the transcript, the in-progress streaming buffer and
// the thread identity for one conversation. Events from the stream
// arrive in order from a single reader goroutine; all state transitions
// happen under one mutex.
package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lendflow-labs/loanchat/internal/sse"
)

// User-visible fallback texts.
const (
	fallbackGreeting = "Hi! I'm your loan agent. I'll help you through the application process. Let's start with some basic information."

	errConnectFailed     = "Failed to connect to the agent. Please try again."
	errStreamInterrupted = "Connection interrupted. Please try again."
	errSendFailed        = "Sorry, I couldn't process your message. Please try again."
)

// Streamer opens an agent response stream for one user turn.
type Streamer interface {
	StartStream(ctx context.Context, threadID, text string) (io.ReadCloser, error)
}

// Message is one transcript entry. Messages are append-only and never
// mutated after creation.
type Message struct {
	ID        string
	Text      string
	IsBot     bool
	Timestamp time.Time
}

// Change signals that the reconciler's observable state moved.
// Subscribers re-read snapshots; the value carries no payload so
// consecutive notifications coalesce.
type Change struct{}

// Reconciler folds stream events into a transcript.
type Reconciler struct {
	streamer Streamer
	logger   *zap.Logger

	mu             sync.Mutex
	messages       []Message
	buffer         strings.Builder
	threadID       string
	clientSupplied bool
	thinking       bool
	streaming      bool
	lastError      string
	subscribers    []chan Change
	cancelStream   context.CancelFunc
	closed         bool
}

// New builds a reconciler. A non-empty threadID pins the conversation
// identity; thread_id events from the stream are then ignored.
func New(streamer Streamer, threadID string, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		streamer:       streamer,
		logger:         logger,
		threadID:       threadID,
		clientSupplied: threadID != "",
	}
}

// Events returns a notification channel for this subscriber. The channel
// is closed by Close.
func (r *Reconciler) Events() <-chan Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Change, 1)
	if r.closed {
		close(ch)
		return ch
	}
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Bootstrap opens the initial stream with no user content and plays its
// events into the transcript. When the connection itself fails the
// transcript still gets a greeting so the chat never starts empty; a
// stream that breaks after opening keeps whatever it delivered and
// reports only the interruption.
func (r *Reconciler) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	r.thinking = true
	r.lastError = ""
	r.mu.Unlock()
	r.notify()

	opened, err := r.runStream(ctx, "")
	if err != nil {
		if !opened {
			r.mu.Lock()
			r.lastError = errConnectFailed
			r.thinking = false
			r.appendBotLocked(fallbackGreeting)
			r.mu.Unlock()
			r.notify()
		}
		return fmt.Errorf("bootstrap stream: %w", err)
	}
	return nil
}

// SendMessage appends the user's turn and streams the agent's reply.
// Attachments are document-reference lines: they join the wire text sent
// to the agent but never show in the transcript. A turn with neither
// text nor attachments is a no-op.
func (r *Reconciler) SendMessage(ctx context.Context, text string, attachments []string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" && len(attachments) == 0 {
		return nil
	}

	display := trimmed
	if display == "" {
		display = fmt.Sprintf("📎 Attached %d file(s)", len(attachments))
	}

	wire := text
	if len(attachments) > 0 {
		wire = strings.TrimSpace(trimmed + "\n" + strings.Join(attachments, "\n"))
	}

	r.mu.Lock()
	// A still-open stream finalizes before the new user message so the
	// transcript keeps its order.
	r.finalizeLocked()
	r.messages = append(r.messages, newMessage(display, false))
	r.thinking = true
	r.lastError = ""
	r.mu.Unlock()
	r.notify()

	opened, err := r.runStream(ctx, wire)
	if err != nil {
		// The apology covers a request that never reached the agent;
		// the user's message stays either way. A stream broken mid-way
		// already reported the interruption.
		if !opened {
			r.mu.Lock()
			r.thinking = false
			r.appendBotLocked(errSendFailed)
			r.mu.Unlock()
			r.notify()
		}
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// runStream opens the stream and drives HandleEvent until it ends. The
// request text passes through untrimmed; the agent sees what the user
// typed. opened reports whether a stream was established, so callers
// can tell a refused request from one that broke mid-way.
func (r *Reconciler) runStream(ctx context.Context, text string) (opened bool, _ error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false, context.Canceled
	}
	streamCtx, cancel := context.WithCancel(ctx)
	r.cancelStream = cancel
	threadID := r.threadID
	r.mu.Unlock()
	defer func() {
		cancel()
		r.mu.Lock()
		r.cancelStream = nil
		r.mu.Unlock()
	}()

	body, err := r.streamer.StartStream(streamCtx, threadID, text)
	if err != nil {
		return false, err
	}
	defer body.Close()

	var streamErr error
	readErr := sse.Read(streamCtx, body, sse.Handler{
		OnEvent: func(ev sse.Event) {
			r.HandleEvent(ev)
		},
		OnDone: func() {
			r.finalize()
		},
		OnError: func(err error) {
			streamErr = err
		},
	})
	if readErr != nil || streamErr != nil {
		r.mu.Lock()
		r.finalizeLocked()
		r.thinking = false
		r.lastError = errStreamInterrupted
		r.mu.Unlock()
		r.notify()
	}
	if readErr != nil {
		return true, readErr
	}
	return true, streamErr
}

// HandleEvent applies one stream event to the transcript state.
func (r *Reconciler) HandleEvent(ev sse.Event) {
	r.mu.Lock()

	switch {
	case ev.Type == sse.TypeThreadID:
		// Thread identity is assigned once. A client-supplied id stays
		// authoritative; a server-assigned id tracks the stream.
		if !r.clientSupplied && ev.ThreadID != "" {
			r.threadID = ev.ThreadID
		}

	case ev.Type == sse.TypeToken:
		r.thinking = false
		r.streaming = true
		r.buffer.WriteString(ev.TokenText())

	case ev.IsMessage():
		r.thinking = false
		// A complete message supersedes whatever streamed before it;
		// an empty message event leaves the token stream intact.
		if text := ev.MessageText(); text != "" {
			if r.streaming {
				r.buffer.Reset()
				r.streaming = false
			}
			r.appendBotLocked(text)
		}

	case ev.IsEnd():
		r.finalizeLocked()
		r.thinking = false

	default:
		r.logger.Debug("ignoring stream event", zap.String("type", ev.Type))
		r.mu.Unlock()
		return
	}

	r.mu.Unlock()
	r.notify()
}

// finalize promotes a non-empty streaming buffer to one bot message.
// Safe to call when no stream is active.
func (r *Reconciler) finalize() {
	r.mu.Lock()
	r.finalizeLocked()
	r.thinking = false
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) finalizeLocked() {
	text := strings.TrimSpace(r.buffer.String())
	r.buffer.Reset()
	r.streaming = false
	if text != "" {
		r.appendBotLocked(text)
	}
}

func (r *Reconciler) appendBotLocked(text string) {
	r.messages = append(r.messages, newMessage(text, true))
}

// Messages returns a copy of the transcript.
func (r *Reconciler) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// StreamingText returns the in-progress bot reply.
func (r *Reconciler) StreamingText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer.String()
}

// ThreadID returns the current conversation identity.
func (r *Reconciler) ThreadID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threadID
}

// IsThinking reports whether a reply was requested but no token has
// arrived yet.
func (r *Reconciler) IsThinking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.thinking
}

// IsStreaming reports whether tokens are currently accumulating.
func (r *Reconciler) IsStreaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaming
}

// LastError returns the most recent user-facing error text, empty when
// the last operation succeeded.
func (r *Reconciler) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// Close cancels any in-flight stream and closes all subscriber channels.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.cancelStream != nil {
		r.cancelStream()
	}
	subs := r.subscribers
	r.subscribers = nil
	r.mu.Unlock()

	for _, ch := range subs {
		close(ch)
	}
}

// notify wakes every subscriber without blocking; a pending notification
// already says everything a new one would. Delivery happens under the
// mutex so Close cannot close a channel mid-send.
func (r *Reconciler) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, ch := range r.subscribers {
		select {
		case ch <- Change{}:
		default:
		}
	}
}

func newMessage(text string, isBot bool) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		IsBot:     isBot,
		Timestamp: time.Now(),
	}
}
