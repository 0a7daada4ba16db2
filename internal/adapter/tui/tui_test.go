package tui

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kyson/namecall/internal/core/proxy"
	"github.com/kyson/namecall/internal/core/worker"
	"github.com/kyson/namecall/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queue stands in for the tea.Program: posted functions are handed over an
// unbuffered channel and the test feeds them into Update one at a time. Like
// Program.Send, a post only completes once the event loop receives it.
type queue struct {
	t    *testing.T
	ch   chan func()
	done chan struct{}
}

func newQueue(t *testing.T) *queue {
	q := &queue{t: t, ch: make(chan func()), done: make(chan struct{})}
	t.Cleanup(func() { close(q.done) })
	return q
}

func (q *queue) Post(fn func()) bool {
	timer := time.NewTimer(2 * time.Second)
	defer timer.Stop()
	select {
	case q.ch <- fn:
		return true
	case <-q.done:
		return false
	case <-timer.C:
		q.t.Errorf("post never received by the event loop")
		return false
	}
}

func newTestModel(t *testing.T, socket string) (*Model, *queue) {
	t.Helper()
	q := newQueue(t)
	var m *Model
	px := proxy.New(socket, q,
		proxy.WithConnectRetry(20*time.Millisecond),
		proxy.WithOnDisconnected(func(err error) { m.OnDisconnected(err) }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	m = New(ctx, px)
	m.OnQuit(func() {
		cancel()
		px.Disconnect()
	})
	t.Cleanup(func() {
		cancel()
		px.Disconnect()
	})
	return m, q
}

// step runs the next posted function on the model.
func step(t *testing.T, m *Model, q *queue) tea.Cmd {
	t.Helper()
	select {
	case fn := <-q.ch:
		_, cmd := m.Update(dispatchMsg{fn: fn})
		return cmd
	case <-time.After(3 * time.Second):
		t.Fatal("nothing posted")
		return nil
	}
}

func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "nct-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "w.sock")
}

func startWorker(t *testing.T, socket string, delay time.Duration) (kill func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- ipc.Serve(ctx, socket, worker.New(worker.WithDelay(delay)), &ipc.ServerOptions{Ready: ready})
	}()
	select {
	case <-ready:
	case err := <-errCh:
		cancel()
		t.Fatalf("worker failed: %v", err)
	}
	var once sync.Once
	kill = func() {
		once.Do(func() {
			cancel()
			<-errCh
		})
	}
	t.Cleanup(kill)
	return kill
}

func enter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func TestSubmit_WhileDisconnected(t *testing.T) {
	m, _ := newTestModel(t, socketPath(t))
	m.input.SetValue("World")

	_, cmd := m.Update(enter())

	assert.False(t, m.Busy())
	assert.Contains(t, m.Notice(), "Failed getting response")
	assert.Contains(t, m.Notice(), proxy.ErrNotConnected.Error())
	assert.NotNil(t, cmd, "notice expiry should be scheduled")
}

func TestSubmit_ResultClearsBusy(t *testing.T) {
	socket := socketPath(t)
	startWorker(t, socket, 20*time.Millisecond)
	m, q := newTestModel(t, socket)

	m.Init()
	assert.Equal(t, ConnStateConnecting, m.Conn())
	step(t, m, q)
	require.Equal(t, ConnStateConnected, m.Conn())

	m.input.SetValue("World")
	m.Update(enter())
	assert.True(t, m.Busy())
	assert.Contains(t, m.View(), "waiting for worker")

	// a second submit while busy is ignored
	m.Update(enter())
	assert.Empty(t, m.Notice())

	step(t, m, q)
	assert.False(t, m.Busy())
	assert.Equal(t, "Hello there World", m.Response())
	assert.Contains(t, m.View(), "Hello there World")
	assert.Contains(t, m.View(), "Connected")
}

func TestSubmit_WorkerGoneClearsBusy(t *testing.T) {
	socket := socketPath(t)
	kill := startWorker(t, socket, time.Minute)
	m, q := newTestModel(t, socket)

	m.Init()
	step(t, m, q)
	require.Equal(t, ConnStateConnected, m.Conn())

	m.input.SetValue("World")
	m.Update(enter())
	require.True(t, m.Busy())

	kill()

	// 结果与断开通知在同一次 Update 中处理
	cmd := step(t, m, q)
	assert.False(t, m.Busy())
	assert.Contains(t, m.Notice(), "Failed getting response")
	assert.Empty(t, m.Response())
	assert.Equal(t, ConnStateDisconnected, m.Conn())
	assert.NotNil(t, cmd, "reconnect should be scheduled")
}

func TestReconnectAfterWorkerRestart(t *testing.T) {
	socket := socketPath(t)
	kill := startWorker(t, socket, 0)
	m, q := newTestModel(t, socket)

	m.Init()
	step(t, m, q)
	require.Equal(t, ConnStateConnected, m.Conn())

	// 触发一次失败调用让会话失效
	kill()
	m.Update(enter())
	step(t, m, q)
	require.Equal(t, ConnStateDisconnected, m.Conn())

	startWorker(t, socket, 0)
	m.Update(reconnectTickMsg{})
	assert.Equal(t, ConnStateConnecting, m.Conn())
	step(t, m, q)
	assert.Equal(t, ConnStateConnected, m.Conn())
	assert.Equal(t, "Reconnected to worker", m.Notice())
}

func TestNoticeExpires(t *testing.T) {
	m, _ := newTestModel(t, socketPath(t))
	m.showNotice("first")
	m.showNotice("second")

	m.Update(clearNoticeMsg{seq: 1})
	assert.Equal(t, "second", m.Notice(), "stale expiry must not clear a newer notice")

	m.Update(clearNoticeMsg{seq: 2})
	assert.Empty(t, m.Notice())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, socketPath(t))
	quit := false
	m.OnQuit(func() { quit = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.True(t, quit)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTyping(t *testing.T) {
	m, _ := newTestModel(t, socketPath(t))
	for _, r := range "Zoë" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "Zoë", m.input.Value())
}

func TestProgramDispatcher_DropsWhenDetachedOrClosed(t *testing.T) {
	d := &ProgramDispatcher{}
	assert.False(t, d.Post(func() {}), "no program attached")

	d.Attach(tea.NewProgram(nil))
	d.Close()
	assert.False(t, d.Post(func() {}))
}

// 真实的 tea.Program：worker 在调用中途退出后，事件循环仍能处理按键并退出
func TestProgram_WorkerGoneMidCallStillQuits(t *testing.T) {
	socket := socketPath(t)
	kill := startWorker(t, socket, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &ProgramDispatcher{}
	var m *Model
	px := proxy.New(socket, d,
		proxy.WithConnectRetry(20*time.Millisecond),
		proxy.WithOnDisconnected(func(err error) { m.OnDisconnected(err) }),
	)
	m = New(ctx, px)
	m.OnQuit(func() {
		cancel()
		px.Disconnect()
		d.Close()
	})

	p := tea.NewProgram(m,
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	d.Attach(p)
	finished := make(chan error, 1)
	go func() {
		_, err := p.Run()
		finished <- err
	}()

	require.Eventually(t, px.Connected, 3*time.Second, 10*time.Millisecond)
	go func() {
		p.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("World")})
		p.Send(enter())
	}()
	require.Eventually(t, px.Busy, 3*time.Second, 10*time.Millisecond)

	kill()
	require.Eventually(t, func() bool { return !px.Connected() }, 3*time.Second, 10*time.Millisecond)

	go p.Send(tea.KeyMsg{Type: tea.KeyEsc})
	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		p.Kill()
		t.Fatal("event loop stopped processing messages after the worker went away")
	}

	// Run 已返回，可以安全读取模型
	assert.False(t, m.Busy())
	assert.Contains(t, m.Notice(), "Failed getting response")
	assert.Equal(t, ConnStateDisconnected, m.Conn())
}
