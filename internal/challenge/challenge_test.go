package challenge

import (
	"fmt"
	"regexp"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promptPattern = regexp.MustCompile(`^What is (\d) \+ (\d)\?$`)

func solve(t *testing.T, prompt string) string {
	t.Helper()
	m := promptPattern.FindStringSubmatch(prompt)
	require.Len(t, m, 3, prompt)
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	return fmt.Sprint(a + b)
}

func TestArithmeticCorrectAnswer(t *testing.T) {
	t.Parallel()
	w := NewArithmetic(42)
	token, ok := w.Answer(" " + solve(t, w.Prompt()) + " ")
	require.True(t, ok)
	_, err := uuid.Parse(token)
	assert.NoError(t, err)
}

func TestArithmeticWrongAnswer(t *testing.T) {
	t.Parallel()
	w := NewArithmetic(7)
	token, ok := w.Answer("not a number")
	assert.False(t, ok)
	assert.Empty(t, token)

	// A new question is still answerable.
	_, ok = w.Answer(solve(t, w.Prompt()))
	assert.True(t, ok)
}

func TestStatic(t *testing.T) {
	t.Parallel()
	w := Static{Question: "Type ok", Expected: "ok", Token: "tok"}
	assert.Equal(t, "Type ok", w.Prompt())

	token, ok := w.Answer("ok")
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	_, ok = w.Answer("no")
	assert.False(t, ok)
}
