package wizard

import (
	"virtualcare/internal/catalog"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field is the text control of a short- or long-text step.
type field struct {
	multiline bool
	input     textinput.Model
	area      textarea.Model
}

func newField(q catalog.Question, multiline bool) field {
	f := field{multiline: multiline}
	if multiline {
		ta := textarea.New()
		ta.Placeholder = q.Placeholder
		ta.ShowLineNumbers = false
		ta.SetWidth(72)
		ta.SetHeight(4)
		ta.Blur()
		f.area = ta
		return f
	}
	ti := textinput.New()
	ti.Placeholder = q.Placeholder
	ti.Width = 72
	ti.Blur()
	f.input = ti
	return f
}

func (f field) Value() string {
	if f.multiline {
		return f.area.Value()
	}
	return f.input.Value()
}

func (f *field) SetValue(v string) {
	if f.multiline {
		f.area.SetValue(v)
		return
	}
	f.input.SetValue(v)
}

func (f *field) Focus() tea.Cmd {
	if f.multiline {
		return f.area.Focus()
	}
	return f.input.Focus()
}

func (f *field) Blur() {
	if f.multiline {
		f.area.Blur()
		return
	}
	f.input.Blur()
}

func (f field) Focused() bool {
	if f.multiline {
		return f.area.Focused()
	}
	return f.input.Focused()
}

func (f *field) SetWidth(w int) {
	if w < 10 {
		w = 10
	}
	if f.multiline {
		f.area.SetWidth(w)
		return
	}
	f.input.Width = w
}

func (f field) Update(msg tea.Msg) (field, tea.Cmd) {
	var cmd tea.Cmd
	if f.multiline {
		f.area, cmd = f.area.Update(msg)
	} else {
		f.input, cmd = f.input.Update(msg)
	}
	return f, cmd
}

func (f field) View() string {
	if f.multiline {
		return f.area.View()
	}
	return f.input.View()
}
