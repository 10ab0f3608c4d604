// Package wizard is the terminal front end of the intake questionnaire.
// All steps are laid out in one scrolling viewport; the sequencer decides
// which step is active and drives scrolling and focus through a Presenter
// bound to the running bubbletea program.
package wizard

import (
	"context"
	"time"

	"virtualcare/cmd/intake/ui"
	"virtualcare/internal/analytics"
	"virtualcare/internal/catalog"
	"virtualcare/internal/challenge"
	"virtualcare/internal/logging"
	"virtualcare/internal/media"
	"virtualcare/internal/sequencer"
	"virtualcare/internal/steps"
	"virtualcare/internal/submission"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Submitter runs the submission pipeline for the finalization panel.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (submission.Outcome, error)
}

// Options configures the wizard.
type Options struct {
	Sequencer sequencer.Options
	NoticeTTL time.Duration
	Page      string // analytics page path
	StartDir  string // where the file picker opens
}

// Deps are the collaborators the wizard drives.
type Deps struct {
	Catalog   *catalog.Catalog
	Submitter Submitter
	Analytics analytics.Collector // nil disables page views
	Challenge challenge.Widget
	Styles    ui.Styles
}

// Screen is the top-level page shown.
type Screen int

const (
	ScreenIntro Screen = iota
	ScreenSteps
	ScreenSuccess
	ScreenError
)

// Public copy.
const (
	introKicker  = "Welcome To Caswell Orthodontic's"
	introTitle   = "Virtual Care App"
	proceedLabel = "Let's Proceed"

	finalPrompt    = "Verify captcha then click Get Your Results button"
	submitLabel    = "Get Your Results"
	waitLabel      = "Please wait"
	uploadNote     = "Uploading your images may take some time. Please don't close your browser."
	instructHint   = "After reading click the Next button"
	wrongChallenge = "That answer is not right. Please try again."

	successTitle = "Great Job!"
	successBody  = "Dr. Caswell will review your information and photos to develop a customized Smile Assessment. " +
		"We will email it to you within 2 business days for you to review. " +
		"The next step would be coming in for full records and x-rays. " +
		"We look forward to helping you achieve a beautiful healthy smile"
	learnMoreLabel = "Learn More About Us"
	learnMoreURL   = "https://caswellorthodontics.com/about/"

	errorTitle = "Oops. Something went wrong."
	errorBody  = "The developer has been notified and is now working on a fix."
)

var introSteps = []string{
	"1. Enter Your Patient Info",
	"2. Answer A Few Questions",
	"3. Snap 5 Pics of Your Teeth",
}

// =============================================================================
// MESSAGES
// =============================================================================

// pickTarget is the image slot the file picker fills.
type pickTarget struct {
	step int
	slot int
}

type fileLoadedMsg struct {
	target pickTarget
	path   string
	file   *media.File
	err    error
}

type previewMsg struct {
	target  pickTarget
	file    *media.File
	preview media.Preview
	err     error
}

type submittedMsg struct {
	outcome submission.Outcome
	err     error
}

type noticeExpiredMsg struct{ at time.Time }

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model of the wizard.
type Model struct {
	ctx    context.Context
	opts   Options
	styles ui.Styles
	log    *zap.Logger

	catalog   *catalog.Catalog
	seq       *sequencer.Sequencer
	presenter *programPresenter
	steps     []steps.Step
	fields    []field

	submitter Submitter
	analytics analytics.Collector
	widget    challenge.Widget

	screen Screen
	width  int
	height int

	// selected is the step that receives keys, or TargetFinalization.
	selected int
	slot     int
	offsets  []int

	viewport viewport.Model
	progress progress.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	auxCache map[int]string

	challengeInput textinput.Model
	token          string
	submitting     bool

	picking    bool
	pickFor    pickTarget
	filepicker filepicker.Model

	notices *ui.Notices
}

// New builds the wizard over deps. ctx bounds the submission requests.
func New(ctx context.Context, deps Deps, opts Options) (Model, error) {
	all, err := steps.NewAll(deps.Catalog)
	if err != nil {
		return Model{}, err
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 5 * time.Second
	}
	if deps.Analytics == nil {
		deps.Analytics = analytics.Nop{}
	}

	presenter := &programPresenter{}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner

	ci := textinput.New()
	ci.Placeholder = "Your answer"
	ci.CharLimit = 4
	ci.Width = 12

	m := Model{
		ctx:            ctx,
		opts:           opts,
		styles:         deps.Styles,
		log:            logging.Get(logging.CategoryWizard),
		catalog:        deps.Catalog,
		seq:            sequencer.New(deps.Catalog, opts.Sequencer, presenter),
		presenter:      presenter,
		steps:          all,
		fields:         make([]field, len(all)),
		submitter:      deps.Submitter,
		analytics:      deps.Analytics,
		widget:         deps.Challenge,
		screen:         ScreenIntro,
		viewport:       viewport.New(80, 20),
		progress:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:        sp,
		renderer:       newRenderer(deps.Styles.Theme, 72),
		auxCache:       make(map[int]string),
		challengeInput: ci,
		notices:        ui.NewNotices(opts.NoticeTTL, 3),
	}
	for i, st := range all {
		if ts, ok := st.(*steps.TextStep); ok {
			m.fields[i] = newField(ts.Question(), ts.Multiline())
		}
	}
	return m, nil
}

// Attach binds the sequencer's transitions to a running program.
func (m Model) Attach(p *tea.Program) { m.presenter.attach(p.Send) }

// Close stops pending transitions. Call it after the program has exited.
func (m Model) Close() { m.seq.Close() }

// Screen returns the current screen.
func (m Model) Screen() Screen { return m.screen }

// Sequencer exposes the step state.
func (m Model) Sequencer() *sequencer.Sequencer { return m.seq }

// Init sends the page view.
func (m Model) Init() tea.Cmd {
	coll, ctx, page := m.analytics, m.ctx, m.opts.Page
	return func() tea.Msg {
		coll.PageView(ctx, page)
		return nil
	}
}

func newRenderer(theme ui.Theme, width int) *glamour.TermRenderer {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// Run starts the program in the alternate screen and blocks until it exits.
func Run(ctx context.Context, m Model) (Model, error) {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.Attach(p)
	final, err := p.Run()
	m.Close()
	if fm, ok := final.(Model); ok {
		return fm, err
	}
	return m, err
}
