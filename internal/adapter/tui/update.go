package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/proxy"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case dispatchMsg:
		msg.fn()
	case reconnectTickMsg:
		m.connect()
	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, m.handleQuit()
		case "enter":
			m.submit()
		default:
			m.input, cmd = m.input.Update(msg)
			m.later(cmd)
		}
	default:
		m.spinner, cmd = m.spinner.Update(msg)
		m.later(cmd)
		m.input, cmd = m.input.Update(msg)
		m.later(cmd)
	}
	return m, m.flush()
}

// -----------------------------------------------------------------------------
// 连接
// -----------------------------------------------------------------------------

func (m *Model) connect() {
	if m.ctx.Err() != nil {
		return
	}
	m.conn = ConnStateConnecting
	if err := m.proxy.Connect(m.ctx, m.onConnected); err != nil && !errors.Is(err, proxy.ErrAlreadyConnected) {
		m.showNotice("Connect failed: " + err.Error())
	}
}

// onConnected runs on the event loop.
func (m *Model) onConnected(err error) {
	if err != nil {
		logger.Debug("Connect abandoned", "error", err)
		m.conn = ConnStateDisconnected
		if m.ctx.Err() == nil {
			m.showNotice("Connect failed: " + err.Error())
			m.later(reconnectAfter(reconnectDelay))
		}
		return
	}
	m.conn = ConnStateConnected
	if m.reconnects > 0 {
		m.showNotice("Reconnected to worker")
	}
}

// OnDisconnected is the proxy hook for a worker that went away.
func (m *Model) OnDisconnected(err error) {
	logger.Warn("Worker went away", "error", err)
	m.conn = ConnStateDisconnected
	m.reconnects++
	m.later(reconnectAfter(reconnectDelay))
}

func reconnectAfter(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return reconnectTickMsg{}
	})
}

// -----------------------------------------------------------------------------
// 调用
// -----------------------------------------------------------------------------

func (m *Model) submit() {
	if m.busy {
		return
	}
	name := m.input.Value()
	m.busy = true
	if err := m.proxy.CallRemote(name, m.onResult); err != nil {
		m.busy = false
		m.showNotice("Failed getting response: " + err.Error())
	}
}

// onResult runs on the event loop.
func (m *Model) onResult(greeting string, err error) {
	m.busy = false
	if err != nil {
		logger.Error("Remote failure", "error", err)
		m.showNotice("Failed getting response: " + err.Error())
		return
	}
	m.response = greeting
}

func (m *Model) showNotice(text string) {
	m.notice = text
	m.noticeSeq++
	seq := m.noticeSeq
	m.later(tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	}))
}

func (m *Model) handleQuit() tea.Cmd {
	if m.quit != nil {
		m.quit()
	}
	return tea.Quit
}
