package wizard

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"virtualcare/internal/media"
	"virtualcare/internal/sequencer"
	"virtualcare/internal/steps"
	"virtualcare/internal/submission"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const (
	headerHeight = 4
	footerHeight = 6
)

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case scrollMsg:
		if !m.seq.IsCurrent(msg.seq) {
			return m, nil
		}
		m.blurAll()
		m.selected = msg.target
		m.slot = 0
		m.refresh()
		m.scrollTo(msg.target)
		if msg.target == sequencer.TargetFinalization {
			cmds = append(cmds, m.challengeInput.Focus())
		}

	case focusMsg:
		if !m.seq.IsCurrent(msg.seq) {
			return m, nil
		}
		cmds = append(cmds, m.focusStep(msg.step))

	case fileLoadedMsg:
		cmds = append(cmds, m.acceptFile(msg))

	case previewMsg:
		if msg.err != nil {
			m.log.Warn("preview failed", zap.String("file", msg.file.Name), zap.Error(msg.err))
			break
		}
		switch st := m.steps[msg.target.step].(type) {
		case *steps.ImageStep:
			st.SetPreview(msg.file, msg.preview)
		case *steps.MultiImageStep:
			st.SetPreview(msg.target.slot, msg.file, msg.preview)
		}

	case submittedMsg:
		m.submitting = false
		switch msg.outcome {
		case submission.OutcomeSuccess:
			m.screen = ScreenSuccess
		case submission.OutcomeError:
			m.screen = ScreenError
		default:
			if msg.err != nil {
				cmds = append(cmds, m.notify(steps.LevelWarn, submission.UserMessage(msg.err)))
			}
		}

	case noticeExpiredMsg:
		m.notices.Expire(msg.at)

	case spinner.TickMsg:
		if m.submitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		cmds = append(cmds, cmd)

	default:
		// Directory listings and other component messages.
		if m.picking {
			var cmd tea.Cmd
			m.filepicker, cmd = m.filepicker.Update(msg)
			cmds = append(cmds, cmd)
		}
		if m.selected == sequencer.TargetFinalization {
			var cmd tea.Cmd
			m.challengeInput, cmd = m.challengeInput.Update(msg)
			cmds = append(cmds, cmd)
		} else if m.isText(m.selected) {
			var cmd tea.Cmd
			m.fields[m.selected], cmd = m.fields[m.selected].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if m.screen == ScreenSteps {
		m.refresh()
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.picking {
		return m.handlePickerKey(msg)
	}

	switch m.screen {
	case ScreenIntro:
		if msg.String() == "enter" {
			m.screen = ScreenSteps
			m.selected = 0
			m.refresh()
			m.seq.Begin()
		}
		return m, nil
	case ScreenSuccess, ScreenError:
		switch msg.String() {
		case "enter", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil
	case "ctrl+p":
		return m.moveSelection(-1)
	case "ctrl+n":
		return m.moveSelection(1)
	}

	if m.selected == sequencer.TargetFinalization {
		return m.handleFinalKey(msg)
	}
	if m.selected < 0 || m.selected >= len(m.steps) || m.seq.Status(m.selected) == sequencer.StatusSuppressed {
		return m, nil
	}

	id := m.selected
	switch st := m.steps[id].(type) {
	case *steps.TextStep:
		switch msg.String() {
		case "tab":
			return m, m.confirm(id, st.Confirm())
		case "enter":
			if !st.Multiline() {
				return m, m.confirm(id, st.Confirm())
			}
		}
		f := m.fields[id]
		if !f.Focused() {
			return m, nil
		}
		var cmd tea.Cmd
		f, cmd = f.Update(msg)
		if kept := st.SetValue(f.Value()); kept != f.Value() {
			f.SetValue(kept)
		}
		m.fields[id] = f
		return m, cmd

	case *steps.ChoiceStep:
		switch msg.String() {
		case "up", "k":
			st.Move(-1)
		case "down", "j":
			st.Move(1)
		case "enter", " ":
			if res := st.Choose(); res.Confirmed() {
				return m, m.confirm(id, res)
			}
		case "n":
			if st.Multi() {
				return m, m.confirm(id, st.Next())
			}
		}
		return m, nil

	case *steps.InstructionStep:
		switch msg.String() {
		case "enter", "n":
			return m, m.confirm(id, st.Confirm())
		}
		return m, nil

	case *steps.ImageStep:
		switch msg.String() {
		case "o":
			return m.openPicker(pickTarget{step: id})
		case "enter", "n":
			return m, m.confirm(id, st.Confirm())
		}
		return m, nil

	case *steps.MultiImageStep:
		switch key := msg.String(); key {
		case "1", "2", "3", "4", "5":
			m.slot, _ = strconv.Atoi(key)
			m.slot--
		case "left", "h":
			if m.slot > 0 {
				m.slot--
			}
		case "right", "l":
			if m.slot < steps.MaxSlots-1 {
				m.slot++
			}
		case "o", "enter":
			return m.openPicker(pickTarget{step: id, slot: m.slot})
		case "x":
			st.Clear(m.slot)
		case "n":
			return m, m.confirm(id, st.Next())
		case "s":
			return m, m.confirm(id, st.Skip())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleFinalKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() != "enter" {
		if m.submitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.challengeInput, cmd = m.challengeInput.Update(msg)
		return m, cmd
	}
	if m.submitting {
		return m, nil
	}

	if m.token == "" && m.challengeInput.Value() != "" && m.widget != nil {
		token, ok := m.widget.Answer(m.challengeInput.Value())
		m.challengeInput.Reset()
		if !ok {
			return m, m.notify(steps.LevelWarn, wrongChallenge)
		}
		m.token = token
	}

	m.submitting = true
	req := submission.Request{
		Answers: m.seq.Answers(),
		Email:   m.seq.Email(),
		Token:   m.token,
	}
	sub, ctx := m.submitter, m.ctx
	submit := func() tea.Msg {
		out, err := sub.Submit(ctx, req)
		return submittedMsg{outcome: out, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, submit)
}

// moveSelection steps through reachable steps for editing earlier answers.
func (m Model) moveSelection(delta int) (Model, tea.Cmd) {
	last := m.seq.Current()
	if last >= len(m.steps) {
		last = sequencer.TargetFinalization
	}
	next := m.selected
	if next == sequencer.TargetFinalization {
		next = len(m.steps)
	}
	next += delta
	if next < 0 {
		return m, nil
	}
	switch {
	case next >= len(m.steps):
		if last != sequencer.TargetFinalization {
			return m, nil
		}
		next = sequencer.TargetFinalization
	case last != sequencer.TargetFinalization && next > last:
		return m, nil
	}

	m.blurAll()
	m.selected = next
	m.slot = 0
	m.refresh()
	m.scrollTo(next)
	if next == sequencer.TargetFinalization {
		return m, m.challengeInput.Focus()
	}
	return m, m.focusStep(next)
}

// =============================================================================
// FILE PICKER
// =============================================================================

func (m Model) openPicker(target pickTarget) (Model, tea.Cmd) {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".png", ".jpg", ".jpeg", ".heic", ".PNG", ".JPG", ".JPEG", ".HEIC"}
	if m.opts.StartDir != "" {
		fp.CurrentDirectory = m.opts.StartDir
	}
	fp.AutoHeight = false
	fp.SetHeight(max(m.height-headerHeight-footerHeight, 5))
	m.filepicker = fp
	m.picking = true
	m.pickFor = target
	return m, m.filepicker.Init()
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "esc" || msg.String() == "q" {
		m.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.picking = false
		return m, tea.Batch(cmd, loadFile(m.pickFor, path))
	}
	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.log.Debug("disabled file selected", zap.String("path", path))
		return m, tea.Batch(cmd, m.notify(steps.LevelError, media.ReasonInvalidType))
	}
	return m, cmd
}

func loadFile(target pickTarget, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := media.Open(path)
		return fileLoadedMsg{target: target, path: path, file: f, err: err}
	}
}

func loadPreview(target pickTarget, f *media.File) tea.Cmd {
	return func() tea.Msg {
		p, err := media.NewPreview(f)
		return previewMsg{target: target, file: f, preview: p, err: err}
	}
}

// acceptFile hands a loaded file to its step. Rejections leave the step
// untouched and surface a notice.
func (m *Model) acceptFile(msg fileLoadedMsg) tea.Cmd {
	if msg.err != nil {
		var verr *media.ValidationError
		if errors.As(msg.err, &verr) {
			return m.notify(steps.LevelError, verr.Reason)
		}
		m.log.Warn("failed to open file", zap.String("path", msg.path), zap.Error(msg.err))
		return m.notify(steps.LevelError, fmt.Sprintf("Could not open %s", msg.path))
	}

	var notice *steps.Notice
	switch st := m.steps[msg.target.step].(type) {
	case *steps.ImageStep:
		notice = st.Accept(msg.file)
	case *steps.MultiImageStep:
		notice = st.Accept(msg.target.slot, msg.file)
	default:
		return nil
	}
	if notice != nil {
		return m.notify(notice.Level, notice.Message)
	}
	return loadPreview(msg.target, msg.file)
}

// =============================================================================
// HELPERS
// =============================================================================

// confirm forwards a step result to the sequencer or shows its notice.
func (m *Model) confirm(id int, res steps.Result) tea.Cmd {
	if !res.Confirmed() {
		if res.Notice != nil {
			return m.notify(res.Notice.Level, res.Notice.Message)
		}
		return nil
	}
	if err := m.seq.ConfirmStep(id, "", res.Value); err != nil {
		m.log.Error("confirm failed", zap.Int("step", id), zap.Error(err))
		return m.notify(steps.LevelError, err.Error())
	}
	return m.progress.SetPercent(m.seq.Progress() / 100)
}

func (m *Model) notify(level steps.Level, message string) tea.Cmd {
	m.notices.Push(level, message, time.Now())
	return tea.Tick(m.notices.TTL(), func(t time.Time) tea.Msg {
		return noticeExpiredMsg{at: t}
	})
}

func (m Model) isText(i int) bool {
	if i < 0 || i >= len(m.steps) {
		return false
	}
	_, ok := m.steps[i].(*steps.TextStep)
	return ok
}

func (m *Model) blurAll() {
	for i := range m.fields {
		if m.isText(i) {
			m.fields[i].Blur()
		}
	}
	m.challengeInput.Blur()
}

func (m *Model) focusStep(i int) tea.Cmd {
	if !m.isText(i) || m.seq.Status(i) == sequencer.StatusSuppressed {
		return nil
	}
	m.blurAll()
	return m.fields[i].Focus()
}

func (m *Model) scrollTo(target int) {
	i := target
	if target == sequencer.TargetFinalization {
		i = len(m.steps)
	}
	if i >= 0 && i < len(m.offsets) {
		m.viewport.SetYOffset(m.offsets[i])
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.viewport.Width = w
	m.viewport.Height = max(h-headerHeight-footerHeight, 3)
	m.progress.Width = max(w-16, 10)
	m.filepicker.SetHeight(max(h-headerHeight-footerHeight, 5))
	for i := range m.fields {
		if m.isText(i) {
			m.fields[i].SetWidth(w - 12)
		}
	}
	m.renderer = newRenderer(m.styles.Theme, max(w-12, 20))
	m.auxCache = make(map[int]string)
	m.refresh()
}
