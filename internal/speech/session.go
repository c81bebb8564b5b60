// Package speech adapts an external speech-recognition engine into the
// chat's voice input flow.
package speech

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Result is one recognition hypothesis pushed by the engine.
type Result struct {
	Transcript string
	Confidence float64
	IsFinal    bool
}

// Engine is the external recognizer. Implementations push results and
// lifecycle events back through the EngineEvents handed to them.
type Engine interface {
	Start(events EngineEvents) error
	Stop()
	Abort()
}

// EngineEvents is the engine-to-session callback surface.
type EngineEvents struct {
	OnResult func(Result)
	OnEnd    func()
	OnError  func(code string)
}

// Callbacks reports session-level outcomes to the consumer. Any field
// may be nil.
type Callbacks struct {
	// OnInterimResult fires with the latest non-final hypothesis.
	OnInterimResult func(transcript string)
	// OnFinalResult fires with the accumulated final transcript each
	// time the engine finalizes a segment.
	OnFinalResult func(transcript string)
	// OnEnd fires when recognition stops, with the final transcript.
	OnEnd func(transcript string)
	// OnError fires with a human-readable message.
	OnError func(message string)
}

// Human-readable messages for the engine's error codes.
var errorMessages = map[string]string{
	"no-speech":     "No speech detected. Please try again.",
	"audio-capture": "Microphone not available. Please check your settings.",
	"not-allowed":   "Microphone permission denied.",
	"network":       "Network error during speech recognition.",
}

// Session drives one microphone capture lifecycle at a time.
type Session struct {
	engine    Engine
	callbacks Callbacks
	logger    *zap.Logger

	mu                sync.Mutex
	listening         bool
	finalTranscript   strings.Builder
	interimTranscript string
}

// NewSession builds a session around an engine.
func NewSession(engine Engine, cb Callbacks, logger *zap.Logger) *Session {
	return &Session{engine: engine, callbacks: cb, logger: logger}
}

// StartListening begins capture. Starting while already listening is a
// no-op. Both transcripts reset so nothing carries over from a previous
// capture.
func (s *Session) StartListening() {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return
	}
	s.finalTranscript.Reset()
	s.interimTranscript = ""
	s.mu.Unlock()

	err := s.engine.Start(EngineEvents{
		OnResult: s.onResult,
		OnEnd:    s.onEnd,
		OnError:  s.onError,
	})
	if err != nil {
		s.logger.Warn("speech engine start failed", zap.Error(err))
		if s.callbacks.OnError != nil {
			s.callbacks.OnError("Failed to start speech recognition")
		}
		return
	}

	s.mu.Lock()
	s.listening = true
	s.mu.Unlock()
}

// StopListening asks the engine to finish gracefully; pending results
// still arrive before OnEnd.
func (s *Session) StopListening() {
	s.mu.Lock()
	listening := s.listening
	s.mu.Unlock()
	if listening {
		s.engine.Stop()
	}
}

// AbortListening cancels capture immediately.
func (s *Session) AbortListening() {
	s.mu.Lock()
	listening := s.listening
	s.mu.Unlock()
	if listening {
		s.engine.Abort()
	}
}

// IsListening reports whether capture is active.
func (s *Session) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// FinalTranscript returns the accumulated finalized text.
func (s *Session) FinalTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalTranscript.String()
}

// InterimTranscript returns the latest non-final hypothesis.
func (s *Session) InterimTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interimTranscript
}

func (s *Session) onResult(r Result) {
	s.mu.Lock()
	if r.IsFinal {
		s.finalTranscript.WriteString(r.Transcript)
		s.interimTranscript = ""
		accumulated := s.finalTranscript.String()
		s.mu.Unlock()
		if s.callbacks.OnFinalResult != nil {
			s.callbacks.OnFinalResult(accumulated)
		}
		return
	}
	s.interimTranscript = r.Transcript
	s.mu.Unlock()
	if s.callbacks.OnInterimResult != nil {
		s.callbacks.OnInterimResult(r.Transcript)
	}
}

func (s *Session) onEnd() {
	s.mu.Lock()
	s.listening = false
	final := s.finalTranscript.String()
	s.mu.Unlock()
	if s.callbacks.OnEnd != nil {
		s.callbacks.OnEnd(final)
	}
}

func (s *Session) onError(code string) {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()

	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("Speech recognition error: %s", code)
	}
	s.logger.Warn("speech recognition error", zap.String("code", code))
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(msg)
	}
}
