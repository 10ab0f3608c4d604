package wizard

import (
	"fmt"
	"math"
	"strings"

	"virtualcare/internal/catalog"
	"virtualcare/internal/sequencer"
	"virtualcare/internal/steps"

	"github.com/charmbracelet/lipgloss"
)

// View renders the current screen.
func (m Model) View() string {
	switch m.screen {
	case ScreenIntro:
		return m.viewIntro()
	case ScreenSuccess:
		return m.viewSuccess()
	case ScreenError:
		return m.viewError()
	}

	if m.picking {
		title := m.styles.Title.Render("Select a photo")
		hint := m.styles.Hint.Render("enter to choose, esc to cancel")
		return lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Content.Render(title),
			m.styles.Content.Render(m.filepicker.View()),
			m.styles.Footer.Render(hint),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		m.viewport.View(),
		m.viewFooter(),
	)
}

func (m Model) viewIntro() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Kicker.Render(introKicker) + "\n")
	sb.WriteString(m.styles.Title.Render(introTitle) + "\n")
	for _, s := range introSteps {
		sb.WriteString(m.styles.Body.Render(s) + "\n")
	}
	sb.WriteString("\n" + m.styles.Button.Render(proceedLabel) + "\n\n")
	sb.WriteString(m.styles.Hint.Render("press enter to begin, ctrl+c to quit"))
	return m.styles.Content.Render(sb.String())
}

func (m Model) viewSuccess() string {
	width := m.wrapWidth()
	var sb strings.Builder
	sb.WriteString(m.styles.Success.Render(successTitle) + "\n\n")
	sb.WriteString(m.styles.Body.Width(width).Render(successBody) + "\n\n")
	sb.WriteString(m.styles.Link.Render(learnMoreLabel) + " " + m.styles.Muted.Render(learnMoreURL) + "\n\n")
	sb.WriteString(m.styles.Hint.Render("press enter to exit"))
	return m.styles.Content.Render(sb.String())
}

func (m Model) viewError() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Error.Render(errorTitle) + "\n\n")
	sb.WriteString(m.styles.Body.Render(errorBody) + "\n\n")
	sb.WriteString(m.styles.Hint.Render("press enter to exit"))
	return m.styles.Content.Render(sb.String())
}

func (m Model) viewHeader() string {
	pct := int(math.Round(m.seq.Progress()))
	bar := lipgloss.JoinHorizontal(lipgloss.Center,
		m.progress.View(),
		m.styles.Bold.Render(fmt.Sprintf(" %d%%", pct)),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(introTitle),
		m.styles.Header.Render(bar),
		m.styles.RenderDivider(max(m.width, 1)),
	)
}

func (m Model) viewFooter() string {
	parts := []string{m.styles.RenderDivider(max(m.width, 1))}
	if n := m.notices.Render(m.styles); n != "" {
		parts = append(parts, n)
	}
	parts = append(parts, m.styles.Footer.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) helpLine() string {
	common := "pgup/pgdn scroll • ctrl+p/ctrl+n previous/next step • ctrl+c quit"
	if m.selected == sequencer.TargetFinalization {
		return "type the answer • enter submit • " + common
	}
	if m.selected < 0 || m.selected >= len(m.steps) {
		return common
	}
	switch st := m.steps[m.selected].(type) {
	case *steps.TextStep:
		if st.Multiline() {
			return "tab confirm • " + common
		}
		return "enter/tab confirm • " + common
	case *steps.ChoiceStep:
		if st.Multi() {
			return "↑/↓ move • enter/space toggle • n next • " + common
		}
		return "↑/↓ move • enter select • " + common
	case *steps.InstructionStep:
		return "n next • " + common
	case *steps.ImageStep:
		return "o choose photo • n next • " + common
	case *steps.MultiImageStep:
		return "1-5 slot • o choose photo • x clear • n next • s skip • " + common
	}
	return common
}

// =============================================================================
// BODY
// =============================================================================

// refresh re-renders every step into the viewport and records where each
// one starts. offsets[len(steps)] is the finalization panel.
func (m *Model) refresh() {
	blocks := make([]string, 0, len(m.steps)+1)
	offsets := make([]int, 0, len(m.steps)+1)
	line := 0
	for i := range m.steps {
		b := m.renderStep(i)
		offsets = append(offsets, line)
		blocks = append(blocks, b)
		line += lipgloss.Height(b) + 1
	}
	offsets = append(offsets, line)
	if m.seq.Complete() {
		blocks = append(blocks, m.renderFinal())
	}
	m.offsets = offsets
	m.viewport.SetContent(strings.Join(blocks, "\n"))
}

func (m *Model) renderStep(i int) string {
	st := m.steps[i]
	q := st.Question()
	status := m.seq.Status(i)

	var style lipgloss.Style
	marker := "  "
	switch status {
	case sequencer.StatusAnswered:
		style = m.styles.StepAnswered
		if _, ok := m.seq.Answer(i); ok {
			marker = m.styles.StepCheck.Render("✓ ")
		}
	case sequencer.StatusActive:
		style = m.styles.StepActive
	default:
		style = m.styles.StepSuppressed
	}
	if i == m.selected && status != sequencer.StatusSuppressed {
		marker = m.styles.Cursor.Render("› ")
	}

	var sb strings.Builder
	sb.WriteString(marker + m.styles.Bold.Render(fmt.Sprintf("%d. %s", i+1, q.Prompt)) + "\n")
	if q.HelpText != "" {
		sb.WriteString(m.styles.Muted.Render(q.HelpText) + "\n")
	}
	if aux := m.auxiliary(q); aux != "" {
		sb.WriteString(aux + "\n")
	}

	if status == sequencer.StatusSuppressed {
		// Laid out but not interactive.
		if q.Placeholder != "" {
			sb.WriteString(q.Placeholder)
		}
		return style.Render(strings.TrimRight(sb.String(), "\n"))
	}

	active := i == m.selected
	switch st := st.(type) {
	case *steps.TextStep:
		sb.WriteString(m.fields[i].View())
	case *steps.ChoiceStep:
		sb.WriteString(m.renderChoices(i, st, active))
	case *steps.InstructionStep:
		sb.WriteString(m.styles.Hint.Render(instructHint) + "\n")
		sb.WriteString(m.button("Next", active))
	case *steps.ImageStep:
		sb.WriteString(m.renderSlot(0, st.Slot(), false) + "\n")
		sb.WriteString(m.button("Next", active && st.Ready()))
	case *steps.MultiImageStep:
		slots := st.Slots()
		for n, sl := range slots {
			sb.WriteString(m.renderSlot(n, sl, active && n == m.slot) + "\n")
		}
		sb.WriteString(m.button("Next", active && len(st.Files()) > 0) + " " + m.button("Skip", active))
	}
	return style.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m *Model) renderChoices(id int, st *steps.ChoiceStep, active bool) string {
	q := st.Question()
	answer := ""
	if rec, ok := m.seq.Answer(id); ok {
		answer = rec.Value.Display()
	}
	lines := make([]string, 0, len(q.Choices)+1)
	for n, c := range q.Choices {
		cursor := "  "
		if active && n == st.Cursor() {
			cursor = m.styles.Cursor.Render("› ")
		}
		var on bool
		var box string
		if st.Multi() {
			on = st.Selected(c.Value)
			box = "[ ] "
			if on {
				box = "[x] "
			}
		} else {
			on = answer == c.Value
			box = "( ) "
			if on {
				box = "(•) "
			}
		}
		label := m.styles.Choice.Render(box + c.Label)
		if on {
			label = m.styles.ChoiceSelected.Render(box + c.Label)
		}
		lines = append(lines, cursor+label)
	}
	if st.Multi() {
		lines = append(lines, m.button("Next", active))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSlot(n int, sl steps.Slot, cursor bool) string {
	prefix := "  "
	if cursor {
		prefix = m.styles.Cursor.Render("› ")
	}
	label := fmt.Sprintf("[%d] ", n+1)
	if sl.Empty() {
		return prefix + m.styles.Muted.Render(label+"No photo selected")
	}
	desc := fmt.Sprintf("%s%s (%s MB)", label, sl.File.Name, sl.File.SizeMB())
	switch {
	case sl.Preview == nil:
		desc += " loading preview…"
	case sl.Preview.Width > 0:
		desc += fmt.Sprintf(" %d×%d", sl.Preview.Width, sl.Preview.Height)
	}
	return prefix + m.styles.Body.Render(desc)
}

func (m *Model) renderFinal() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(finalPrompt) + "\n")
	if m.widget != nil {
		sb.WriteString(m.styles.Body.Render(m.widget.Prompt()) + "\n")
	}
	if m.token != "" {
		sb.WriteString(m.styles.Success.Render("✓ Verified") + "\n")
	} else {
		sb.WriteString(m.challengeInput.View() + "\n")
	}
	sb.WriteString("\n")
	if m.submitting {
		sb.WriteString(m.spinner.View() + " " + m.styles.ButtonDisabled.Render(waitLabel) + "\n")
		sb.WriteString(m.styles.Hint.Render(uploadNote))
	} else {
		sb.WriteString(m.button(submitLabel, m.selected == sequencer.TargetFinalization))
	}
	style := m.styles.StepActive
	if m.selected != sequencer.TargetFinalization {
		style = m.styles.StepAnswered
	}
	return style.Render(sb.String())
}

func (m *Model) button(label string, enabled bool) string {
	if enabled {
		return m.styles.Button.Render(label)
	}
	return m.styles.ButtonDisabled.Render(label)
}

// auxiliary renders a question's rich content once per width.
func (m *Model) auxiliary(q catalog.Question) string {
	if out, ok := m.auxCache[q.ID]; ok {
		return out
	}
	md := q.AuxiliaryMarkdown()
	out := md
	if md != "" && m.renderer != nil {
		if r, err := m.renderer.Render(md); err == nil {
			out = strings.Trim(r, "\n")
		}
	}
	m.auxCache[q.ID] = out
	return out
}

func (m Model) wrapWidth() int {
	if m.width <= 0 {
		return 72
	}
	return max(m.width-8, 20)
}
