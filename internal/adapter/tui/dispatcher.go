package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgramDispatcher posts functions onto a running tea.Program.
type ProgramDispatcher struct {
	mu      sync.Mutex
	program *tea.Program
	closed  bool
}

// Attach binds the dispatcher to p. Posts before Attach are dropped.
func (d *ProgramDispatcher) Attach(p *tea.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program = p
}

// Post implements loop.Dispatcher.
func (d *ProgramDispatcher) Post(fn func()) bool {
	d.mu.Lock()
	p := d.program
	closed := d.closed
	d.mu.Unlock()
	if p == nil || closed || fn == nil {
		return false
	}
	// Send 在程序退出后直接返回，不会阻塞
	p.Send(dispatchMsg{fn: fn})
	return true
}

// Close marks the event loop as gone; later posts are dropped.
func (d *ProgramDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}
