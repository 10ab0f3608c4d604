package steps

import (
	"strings"

	"virtualcare/internal/catalog"
	"virtualcare/internal/sequencer"
)

// TextStep is free-text entry. Numeric steps keep only digits.
type TextStep struct {
	base
	value string
}

// Multiline reports whether the step is long-text.
func (s *TextStep) Multiline() bool { return s.q.Kind == catalog.KindLongText }

// SetValue replaces the entered text, applying the step's validation
// filter, and returns what was kept.
func (s *TextStep) SetValue(v string) string {
	if s.q.Validation == catalog.ValidationNumeric {
		v = DigitsOnly(v)
	}
	s.value = v
	return v
}

// Value returns the entered text.
func (s *TextStep) Value() string { return s.value }

// Confirm confirms the entered text unless it is blank.
func (s *TextStep) Confirm() Result {
	if strings.TrimSpace(s.value) == "" {
		return rejected(warn(MsgEmptyAnswer))
	}
	return confirmed(sequencer.Text(s.value))
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// InstructionStep has no input; confirming it records Proceed.
type InstructionStep struct {
	base
}

// Proceed is the value recorded for an instruction step.
const Proceed = "proceed"

// Confirm always confirms with Proceed.
func (s *InstructionStep) Confirm() Result { return confirmed(sequencer.Text(Proceed)) }
