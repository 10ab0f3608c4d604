package wizard

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// scrollMsg and focusMsg carry a sequencer transition into the update loop.
// They are dropped there unless their seq is still current.
type scrollMsg struct {
	seq    uint64
	target int
}

type focusMsg struct {
	seq  uint64
	step int
}

// programPresenter forwards transitions to the program once one is
// attached. Until then they are discarded.
type programPresenter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (p *programPresenter) attach(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

func (p *programPresenter) dispatch(msg tea.Msg) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// ScrollTo implements sequencer.Presenter.
func (p *programPresenter) ScrollTo(seq uint64, target int) {
	p.dispatch(scrollMsg{seq: seq, target: target})
}

// Focus implements sequencer.Presenter.
func (p *programPresenter) Focus(seq uint64, step int) {
	p.dispatch(focusMsg{seq: seq, step: step})
}
