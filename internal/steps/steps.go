// Package steps implements the per-kind input logic of a wizard step,
// independent of how it is drawn. Every Step turns user actions into either
// a confirmed sequencer.Value or a Notice for the user; none of them fail.
package steps

import (
	"fmt"

	"virtualcare/internal/catalog"
	"virtualcare/internal/sequencer"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient, non-blocking message for the user.
type Notice struct {
	Level   Level
	Message string
}

// User-facing notice wording.
const (
	MsgEmptyAnswer = "Oops, you forgot to answer!"
	MsgNoPhoto     = "You need to upload a photo first"
	MsgNoPhotos    = "Please upload at least one photo or click Skip to continue"
)

func warn(msg string) *Notice { return &Notice{Level: LevelWarn, Message: msg} }

// Result is the outcome of a confirming action. Exactly one of Value and
// Notice is set.
type Result struct {
	Value  sequencer.Value
	Notice *Notice
}

// Confirmed reports whether the action produced a value.
func (r Result) Confirmed() bool { return r.Value != nil }

func confirmed(v sequencer.Value) Result { return Result{Value: v} }
func rejected(n *Notice) Result          { return Result{Notice: n} }

// Step is the closed set of step variants: *ChoiceStep, *TextStep,
// *InstructionStep, *ImageStep and *MultiImageStep.
type Step interface {
	Question() catalog.Question
	step()
}

type base struct{ q catalog.Question }

func (b base) Question() catalog.Question { return b.q }
func (base) step()                        {}

// New builds the step variant for q.
func New(q catalog.Question) (Step, error) {
	switch q.Kind {
	case catalog.KindSingleChoice:
		return newChoice(q, false), nil
	case catalog.KindMultiChoice:
		return newChoice(q, true), nil
	case catalog.KindShortText, catalog.KindLongText:
		return &TextStep{base: base{q}}, nil
	case catalog.KindInstruction:
		return &InstructionStep{base: base{q}}, nil
	case catalog.KindSingleImage:
		return &ImageStep{base: base{q}}, nil
	case catalog.KindMultiImage:
		return &MultiImageStep{base: base{q}}, nil
	default:
		return nil, fmt.Errorf("no step for kind %q", q.Kind)
	}
}

// NewAll builds one step per catalog question, in order.
func NewAll(c *catalog.Catalog) ([]Step, error) {
	qs := c.Questions()
	out := make([]Step, 0, len(qs))
	for _, q := range qs {
		s, err := New(q)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
