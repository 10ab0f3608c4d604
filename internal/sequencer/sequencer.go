// Package sequencer owns the intake answers and the index of the first
// unanswered step. ConfirmStep is the only way to change either; the
// scroll-then-focus choreography that follows a confirmation runs on a
// cancelable transition managed here.
package sequencer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"virtualcare/internal/catalog"
	"virtualcare/internal/logging"

	"go.uber.org/zap"
)

var (
	// ErrUnknownStep is returned for a step id outside the catalog.
	ErrUnknownStep = errors.New("unknown step")
	// ErrValueMismatch is returned when a value's shape does not fit the
	// step kind, such as text for an image step.
	ErrValueMismatch = errors.New("value does not match step kind")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sequencer closed")
)

// AnswerRecord is the latest confirmed answer for one question.
type AnswerRecord struct {
	QuestionID int
	Prompt     string
	Value      Value
	Kind       catalog.Kind
}

// State is a snapshot of the sequencer.
type State struct {
	CurrentStep int
	Answers     map[int]AnswerRecord
	Progress    float64 // percent, 0..100
	FocusedStep int     // -1 before any confirmation
}

// Status is how a step is presented relative to the current step.
type Status int

const (
	StatusAnswered   Status = iota // before the current step
	StatusActive                   // the current step
	StatusSuppressed               // not reached yet; inputs disabled
)

func (s Status) String() string {
	switch s {
	case StatusAnswered:
		return "answered"
	case StatusActive:
		return "active"
	case StatusSuppressed:
		return "suppressed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Options configures transition timing.
type Options struct {
	ScrollDelay time.Duration
	FocusDelay  time.Duration
}

// DefaultOptions returns the standard 500ms scroll and 700ms focus delays.
func DefaultOptions() Options {
	return Options{ScrollDelay: 500 * time.Millisecond, FocusDelay: 700 * time.Millisecond}
}

// Sequencer is the single owner of answer state.
type Sequencer struct {
	catalog *catalog.Catalog
	opts    Options
	runner  *runner
	log     *zap.Logger

	mu       sync.Mutex
	current  int
	answers  map[int]AnswerRecord
	progress float64
	focused  int
	closed   bool
}

// New creates a sequencer over cat. presenter may be nil, in which case no
// transitions are scheduled.
func New(cat *catalog.Catalog, opts Options, presenter Presenter) *Sequencer {
	return &Sequencer{
		catalog: cat,
		opts:    opts,
		runner:  newRunner(presenter),
		log:     logging.Get(logging.CategorySequencer),
		answers: make(map[int]AnswerRecord),
		focused: -1,
	}
}

// Len returns the number of steps.
func (s *Sequencer) Len() int { return s.catalog.Len() }

// Catalog returns the catalog the sequencer runs over.
func (s *Sequencer) Catalog() *catalog.Catalog { return s.catalog }

// Begin starts the first transition: scroll to step 0 and focus it when it
// takes text.
func (s *Sequencer) Begin() uint64 {
	q, ok := s.catalog.Question(0)
	if !ok {
		return 0
	}
	return s.runner.start(plan{
		target:     0,
		focus:      q.Kind.HasTextEntry(),
		focusDelay: s.opts.FocusDelay,
	})
}

// ConfirmStep records value as the answer to step id. Confirming the current
// step advances it and schedules the scroll to the next step (or to the
// finalization panel after the last one). Confirming any other step only
// replaces its answer.
func (s *Sequencer) ConfirmStep(id int, prompt string, value Value) error {
	q, ok := s.catalog.Question(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, id)
	}
	if value == nil || !accepts(q.Kind, value) {
		return fmt.Errorf("%w: step %d is %s", ErrValueMismatch, id, q.Kind)
	}
	if prompt == "" {
		prompt = q.Prompt
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.answers[id] = AnswerRecord{QuestionID: id, Prompt: prompt, Value: value, Kind: q.Kind}
	s.focused = id

	advanced := id == s.current
	total := s.catalog.Len()
	if advanced {
		s.current++
		s.progress = percent(s.current, total)
	}
	current, progress := s.current, s.progress
	s.mu.Unlock()

	s.log.Debug("step confirmed",
		zap.Int("step", id),
		zap.String("kind", string(q.Kind)),
		zap.Bool("advanced", advanced),
		zap.Float64("progress", progress),
	)

	if !advanced {
		return nil
	}

	if current >= total {
		s.runner.start(plan{target: TargetFinalization})
		return nil
	}

	next, _ := s.catalog.Question(current)
	s.runner.start(plan{
		target:      current,
		scrollDelay: s.opts.ScrollDelay,
		focus:       next.Kind.HasTextEntry(),
		focusDelay:  s.opts.FocusDelay,
	})
	return nil
}

// IsCurrent reports whether seq belongs to the most recent transition.
func (s *Sequencer) IsCurrent(seq uint64) bool { return s.runner.IsCurrent(seq) }

// Current returns the index of the first unanswered step.
func (s *Sequencer) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Progress returns the completion percentage.
func (s *Sequencer) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Complete reports whether every step has been answered, which reveals the
// finalization panel.
func (s *Sequencer) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current >= s.catalog.Len()
}

// Status returns how step i is presented.
func (s *Sequencer) Status(i int) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case i < s.current:
		return StatusAnswered
	case i == s.current:
		return StatusActive
	default:
		return StatusSuppressed
	}
}

// Answer returns the stored answer for id.
func (s *Sequencer) Answer(id int) (AnswerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.answers[id]
	return rec, ok
}

// Answers returns the stored answers ordered by question id.
func (s *Sequencer) Answers() []AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AnswerRecord, 0, len(s.answers))
	for _, rec := range s.answers {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// Email returns the trimmed answer to the catalog's email question, or "".
func (s *Sequencer) Email() string {
	id := s.catalog.EmailQuestion()
	if id < 0 {
		return ""
	}
	rec, ok := s.Answer(id)
	if !ok {
		return ""
	}
	t, ok := rec.Value.(Text)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(t))
}

// Snapshot returns a copy of the state.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make(map[int]AnswerRecord, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return State{
		CurrentStep: s.current,
		Answers:     answers,
		Progress:    s.progress,
		FocusedStep: s.focused,
	}
}

// Close cancels any pending transition and waits for it to exit.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.runner.close()
}

func percent(current, total int) float64 {
	if total <= 0 {
		return 100
	}
	return math.Min(100, 100*float64(current)/float64(total))
}
