// Package challenge provides the anti-automation check that gates
// submission. A solved widget yields an opaque token; the token is only
// checked for presence and is never sent to the intake endpoints.
package challenge

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Widget is an anti-automation challenge.
type Widget interface {
	// Prompt is the question shown to the user.
	Prompt() string
	// Answer checks input and returns a token when it is correct.
	Answer(input string) (token string, ok bool)
}

// Arithmetic asks for the sum of two small numbers. A wrong answer rolls a
// new question.
type Arithmetic struct {
	mu   sync.Mutex
	rng  *rand.Rand
	a, b int
}

// NewArithmetic creates a widget seeded from seed. Tests pass a fixed seed.
func NewArithmetic(seed uint64) *Arithmetic {
	w := &Arithmetic{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	w.roll()
	return w
}

func (w *Arithmetic) roll() {
	w.a = w.rng.IntN(9) + 1
	w.b = w.rng.IntN(9) + 1
}

// Prompt implements Widget.
func (w *Arithmetic) Prompt() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fmt.Sprintf("What is %d + %d?", w.a, w.b)
}

// Answer implements Widget.
func (w *Arithmetic) Answer(input string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n != w.a+w.b {
		w.roll()
		return "", false
	}
	return uuid.NewString(), true
}

// Static accepts one fixed answer. It is meant for automation and tests.
type Static struct {
	Question string
	Expected string
	Token    string
}

// Prompt implements Widget.
func (s Static) Prompt() string { return s.Question }

// Answer implements Widget.
func (s Static) Answer(input string) (string, bool) {
	if strings.TrimSpace(input) != s.Expected {
		return "", false
	}
	if s.Token != "" {
		return s.Token, true
	}
	return uuid.NewString(), true
}
