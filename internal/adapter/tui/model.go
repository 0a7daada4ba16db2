package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kyson/namecall/internal/core/proxy"
)

// ConnState 连接状态
type ConnState int

const (
	ConnStateConnecting ConnState = iota
	ConnStateConnected
	ConnStateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case ConnStateConnecting:
		return "Connecting"
	case ConnStateConnected:
		return "Connected"
	case ConnStateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

const (
	reconnectDelay = time.Second
	noticeTTL      = 4 * time.Second
)

// Model 是 TUI 的状态容器。所有字段只在 Update 中修改。
type Model struct {
	ctx   context.Context
	proxy *proxy.Proxy
	quit  func()

	input   textinput.Model
	spinner spinner.Model

	conn       ConnState
	reconnects int
	busy       bool
	response   string
	notice     string
	noticeSeq  int

	// 回调里产生的后续命令，Update 结束时统一返回
	pending []tea.Cmd
}

// New builds the model. ctx bounds connection attempts.
func New(ctx context.Context, p *proxy.Proxy) *Model {
	ti := textinput.New()
	ti.Placeholder = "your name"
	ti.CharLimit = 0
	ti.Prompt = "Name: "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		ctx:     ctx,
		proxy:   p,
		input:   ti,
		spinner: sp,
		conn:    ConnStateConnecting,
	}
}

// OnQuit registers teardown run when the user leaves the TUI.
func (m *Model) OnQuit(fn func()) {
	m.quit = fn
}

// Busy reports whether a call is outstanding.
func (m *Model) Busy() bool { return m.busy }

// Response is the last greeting received.
func (m *Model) Response() string { return m.response }

// Notice is the transient error line.
func (m *Model) Notice() string { return m.notice }

// Conn is the connection state shown to the user.
func (m *Model) Conn() ConnState { return m.conn }

func (m *Model) Init() tea.Cmd {
	m.connect()
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.flush())
}

func (m *Model) later(cmd tea.Cmd) {
	m.pending = append(m.pending, cmd)
}

func (m *Model) flush() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	cmds := m.pending
	m.pending = nil
	return tea.Batch(cmds...)
}
