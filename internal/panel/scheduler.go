// Package panel owns the applicant-panel UI state derived from snapshot
// diffs: which sections are expanded, which are highlighted, and which
// fields are animating.
package panel

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lendflow-labs/loanchat/internal/applicant"
)

const (
	// DefaultHighlightTTL is how long section highlights stay visible.
	DefaultHighlightTTL = 4000 * time.Millisecond
	// DefaultAnimationTTL is how long field animations run.
	DefaultAnimationTTL = 2000 * time.Millisecond
)

// Config tunes the scheduler timers. Zero values use the defaults;
// tests shorten them.
type Config struct {
	HighlightTTL time.Duration
	AnimationTTL time.Duration
}

// Scheduler turns diff output into time-boxed panel state. Highlights
// and animations clear themselves after a fixed delay; expansion is
// sticky until the user collapses or a new chat turn resets it.
type Scheduler struct {
	mu sync.Mutex

	expanded        map[string]struct{}
	highlighted     map[string]struct{}
	animated        map[string]struct{}
	lastHighlighted map[string]struct{}

	sectionTimer *time.Timer
	fieldTimer   *time.Timer

	highlightTTL time.Duration
	animationTTL time.Duration

	// onChange, when set, fires after every state mutation. The TUI uses
	// it to trigger a redraw.
	onChange func()

	logger *zap.Logger
	closed bool
}

// NewScheduler creates a scheduler with the given timer config.
func NewScheduler(cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.HighlightTTL <= 0 {
		cfg.HighlightTTL = DefaultHighlightTTL
	}
	if cfg.AnimationTTL <= 0 {
		cfg.AnimationTTL = DefaultAnimationTTL
	}
	return &Scheduler{
		expanded:        make(map[string]struct{}),
		highlighted:     make(map[string]struct{}),
		animated:        make(map[string]struct{}),
		lastHighlighted: make(map[string]struct{}),
		highlightTTL:    cfg.HighlightTTL,
		animationTTL:    cfg.AnimationTTL,
		logger:          logger,
	}
}

// SetOnChange registers the redraw hook. Must be called before updates
// start flowing.
func (s *Scheduler) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// ApplyDiff applies applicant-snapshot changes: sections expand and
// highlight, changed fields animate. A later batch replaces the
// highlight and animation sets and restarts their timers, so the last
// push's timer wins.
func (s *Scheduler) ApplyDiff(ch applicant.Changes) {
	if ch.IsEmpty() {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	sections := append(append([]string{}, ch.NewSections...), ch.ChangedSections...)
	if len(sections) > 0 {
		s.highlighted = make(map[string]struct{}, len(sections))
		s.lastHighlighted = make(map[string]struct{}, len(sections))
		for _, name := range sections {
			s.expanded[name] = struct{}{}
			s.highlighted[name] = struct{}{}
			s.lastHighlighted[name] = struct{}{}
		}
		s.restartSectionTimerLocked()
	}

	if len(ch.ChangedFields) > 0 {
		s.animated = make(map[string]struct{}, len(ch.ChangedFields))
		for _, id := range ch.ChangedFields {
			s.animated[id] = struct{}{}
		}
		s.restartFieldTimerLocked()
	}

	s.logger.Debug("panel updated from applicant diff",
		zap.Strings("sections", sections),
		zap.Strings("fields", ch.ChangedFields))
	s.notifyLocked()
}

// ApplyVariableChanges applies the conversation-variables change path.
// Animated fields are unioned in, and this batch's clearance removes
// exactly its own fields, so concurrent applicant-diff animations are
// not clobbered.
func (s *Scheduler) ApplyVariableChanges(sections, fields []string) {
	if len(sections) == 0 && len(fields) == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if len(sections) > 0 {
		s.highlighted = make(map[string]struct{}, len(sections))
		s.lastHighlighted = make(map[string]struct{}, len(sections))
		for _, name := range sections {
			s.expanded[name] = struct{}{}
			s.highlighted[name] = struct{}{}
			s.lastHighlighted[name] = struct{}{}
		}
		s.restartSectionTimerLocked()
	}

	if len(fields) > 0 {
		for _, id := range fields {
			s.animated[id] = struct{}{}
		}
		batch := append([]string{}, fields...)
		time.AfterFunc(s.animationTTL, func() {
			s.clearAnimatedBatch(batch)
		})
	}

	s.logger.Debug("panel updated from variable changes",
		zap.Strings("sections", sections),
		zap.Strings("fields", fields))
	s.notifyLocked()
}

// ToggleSection flips a section between expanded and collapsed.
func (s *Scheduler) ToggleSection(name string) {
	s.mu.Lock()
	if _, ok := s.expanded[name]; ok {
		delete(s.expanded, name)
	} else {
		s.expanded[name] = struct{}{}
	}
	s.notifyLocked()
}

// ResetExpanded collapses every section. Called when the user sends a
// new chat message so the next push's auto-expand is visible.
func (s *Scheduler) ResetExpanded() {
	s.mu.Lock()
	s.expanded = make(map[string]struct{})
	s.notifyLocked()
}

// ExpandHighlighted re-applies the most recent highlight set to the
// expanded set, for when a highlight fired while the panel was hidden.
func (s *Scheduler) ExpandHighlighted() {
	s.mu.Lock()
	for name := range s.lastHighlighted {
		s.expanded[name] = struct{}{}
	}
	s.notifyLocked()
}

// IsExpanded reports whether a section is expanded.
func (s *Scheduler) IsExpanded(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.expanded[name]
	return ok
}

// IsHighlighted reports whether a section is highlighted.
func (s *Scheduler) IsHighlighted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.highlighted[name]
	return ok
}

// IsAnimated reports whether a "section.key" field is animating.
func (s *Scheduler) IsAnimated(fieldID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.animated[fieldID]
	return ok
}

// ExpandedSections returns the expanded section names, sorted.
func (s *Scheduler) ExpandedSections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.expanded)
}

// HighlightedSections returns the highlighted section names, sorted.
func (s *Scheduler) HighlightedSections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.highlighted)
}

// AnimatedFields returns the animating field IDs, sorted.
func (s *Scheduler) AnimatedFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.animated)
}

// Close stops pending timers. Further updates are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.sectionTimer != nil {
		s.sectionTimer.Stop()
	}
	if s.fieldTimer != nil {
		s.fieldTimer.Stop()
	}
}

// restartSectionTimerLocked cancels any pending highlight clear and
// schedules a new one. Callers hold s.mu.
func (s *Scheduler) restartSectionTimerLocked() {
	if s.sectionTimer != nil {
		s.sectionTimer.Stop()
	}
	s.sectionTimer = time.AfterFunc(s.highlightTTL, func() {
		s.mu.Lock()
		s.highlighted = make(map[string]struct{})
		s.notifyLocked()
	})
}

func (s *Scheduler) restartFieldTimerLocked() {
	if s.fieldTimer != nil {
		s.fieldTimer.Stop()
	}
	s.fieldTimer = time.AfterFunc(s.animationTTL, func() {
		s.mu.Lock()
		s.animated = make(map[string]struct{})
		s.notifyLocked()
	})
}

func (s *Scheduler) clearAnimatedBatch(fields []string) {
	s.mu.Lock()
	for _, id := range fields {
		delete(s.animated, id)
	}
	s.notifyLocked()
}

// notifyLocked releases the mutex and fires the change hook. Callers
// hold s.mu and must not touch state afterwards.
func (s *Scheduler) notifyLocked() {
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
