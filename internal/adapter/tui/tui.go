// Package tui is the interactive front-end: a text field, a submit key, the
// response line and a busy spinner. The bubbletea event loop is the primary
// context; remote calls run on the proxy's goroutines.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kyson/namecall/internal/core/proxy"
)

// Run starts the TUI against the worker at address and blocks until the user quits.
func Run(ctx context.Context, address string, opts ...proxy.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d := &ProgramDispatcher{}
	var m *Model
	opts = append(opts, proxy.WithOnDisconnected(func(err error) { m.OnDisconnected(err) }))
	px := proxy.New(address, d, opts...)
	m = New(ctx, px)

	teardown := func() {
		cancel()
		px.Disconnect()
		d.Close()
	}
	m.OnQuit(teardown)
	defer teardown()

	p := tea.NewProgram(m, tea.WithContext(ctx))
	d.Attach(p)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
