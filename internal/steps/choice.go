package steps

import (
	"strings"

	"virtualcare/internal/catalog"
	"virtualcare/internal/sequencer"
)

// ChoiceStep presents a list of choices. In single mode choosing confirms
// immediately; in multi mode choices toggle a selection that Next confirms.
type ChoiceStep struct {
	base
	multi    bool
	cursor   int
	selected []string // in the order they were chosen
}

func newChoice(q catalog.Question, multi bool) *ChoiceStep {
	return &ChoiceStep{base: base{q}, multi: multi}
}

// Multi reports whether the step accepts several choices.
func (s *ChoiceStep) Multi() bool { return s.multi }

// Cursor returns the highlighted choice index.
func (s *ChoiceStep) Cursor() int { return s.cursor }

// Move moves the cursor by delta, clamped to the choice list.
func (s *ChoiceStep) Move(delta int) {
	n := len(s.q.Choices)
	if n == 0 {
		return
	}
	s.cursor += delta
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.cursor >= n {
		s.cursor = n - 1
	}
}

// Choose acts on the choice under the cursor. In single mode it confirms
// that value; in multi mode it toggles it and confirms nothing.
func (s *ChoiceStep) Choose() Result {
	if s.cursor >= len(s.q.Choices) {
		return Result{}
	}
	v := s.q.Choices[s.cursor].Value
	if !s.multi {
		s.selected = []string{v}
		return confirmed(sequencer.Text(v))
	}
	s.Toggle(v)
	return Result{}
}

// Toggle adds value to the selection, or removes it if present.
func (s *ChoiceStep) Toggle(value string) {
	for i, v := range s.selected {
		if v == value {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return
		}
	}
	s.selected = append(s.selected, value)
}

// Selected reports whether value is highlighted: the confirmed value in
// single mode, set membership in multi mode.
func (s *ChoiceStep) Selected(value string) bool {
	for _, v := range s.selected {
		if v == value {
			return true
		}
	}
	return false
}

// Selection returns the current selection in choice order of toggling.
func (s *ChoiceStep) Selection() []string {
	return append([]string(nil), s.selected...)
}

// Next confirms a multi-choice selection as a comma-joined string. An empty
// selection confirms the empty string. In single mode it is a no-op.
func (s *ChoiceStep) Next() Result {
	if !s.multi {
		return Result{}
	}
	return confirmed(sequencer.Text(strings.Join(s.selected, ",")))
}
