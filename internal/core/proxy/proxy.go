// Package proxy is the client side of the name call. It owns the session with
// the worker, runs every remote call on its own goroutine and hands results back
// to the caller's primary context through a loop.Dispatcher.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/loop"
	"github.com/kyson/namecall/internal/core/worker"
	"github.com/kyson/namecall/internal/ipc"
)

type Option func(*Proxy)

// WithDialTimeout bounds each dial of the worker endpoint.
func WithDialTimeout(d time.Duration) Option {
	return func(p *Proxy) { p.dialTimeout = d }
}

// WithCallTimeout bounds each remote call. Zero means no bound.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Proxy) { p.callTimeout = d }
}

// WithConnectRetry sets how often an unreachable worker is probed while connecting.
func WithConnectRetry(d time.Duration) Option {
	return func(p *Proxy) {
		if d > 0 {
			p.connectRetry = d
		}
	}
}

// WithSenderFactory replaces the unix socket transport.
func WithSenderFactory(f func(address string) ipc.CommandSender) Option {
	return func(p *Proxy) {
		if f != nil {
			p.newSender = f
		}
	}
}

// WithOnDisconnected registers a hook that runs on the primary context when a
// call finds the worker gone and the session is dropped.
func WithOnDisconnected(fn func(error)) Option {
	return func(p *Proxy) { p.onDisconnected = fn }
}

// Proxy is safe for concurrent use. Callbacks passed to Connect and CallRemote
// always run on the dispatcher.
type Proxy struct {
	address    string
	dispatcher loop.Dispatcher

	dialTimeout    time.Duration
	callTimeout    time.Duration
	connectRetry   time.Duration
	newSender      func(address string) ipc.CommandSender
	onDisconnected func(error)

	mu         sync.Mutex
	session    *session
	connecting context.CancelFunc
	attempt    uint64
	sessions   uint64
}

// New creates a disconnected proxy for the worker at address. dispatcher is the
// caller's primary context and must not be nil.
func New(address string, dispatcher loop.Dispatcher, opts ...Option) *Proxy {
	if dispatcher == nil {
		panic("proxy: dispatcher is required")
	}
	p := &Proxy{
		address:      address,
		dispatcher:   dispatcher,
		dialTimeout:  2 * time.Second,
		connectRetry: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.newSender == nil {
		p.newSender = func(address string) ipc.CommandSender {
			s := ipc.NewUnixSender(address)
			s.DialTimeout = p.dialTimeout
			return s
		}
	}
	return p
}

// Connected reports whether a session is live.
func (p *Proxy) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Busy reports whether the live session has a call outstanding.
func (p *Proxy) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil && p.session.inFlight
}

// Binding returns the handle of the live session.
func (p *Proxy) Binding() (Binding, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return Binding{}, false
	}
	return p.session.binding, true
}

// Connect starts the handshake in the background and returns immediately.
// done runs exactly once on the primary context: with nil once the session is
// up, or with the reason the handshake was abandoned (ctx ended, Disconnect was
// called, or the worker refused the binding). While the worker is unreachable
// the handshake keeps probing, so without a ctx deadline it may never finish.
func (p *Proxy) Connect(ctx context.Context, done func(error)) error {
	p.mu.Lock()
	if p.session != nil || p.connecting != nil {
		p.mu.Unlock()
		return ErrAlreadyConnected
	}
	ctx, cancel := context.WithCancel(ctx)
	p.attempt++
	attempt := p.attempt
	p.connecting = cancel
	p.mu.Unlock()

	logger.Debug("Binding to worker", "address", p.address)
	go p.handshake(ctx, attempt, p.newSender(p.address), done)
	return nil
}

func (p *Proxy) handshake(ctx context.Context, attempt uint64, sender ipc.CommandSender, done func(error)) {
	for {
		b, err := p.bind(ctx, sender)
		if err == nil {
			if !p.post(func() { p.completeConnect(attempt, b, done) }) {
				p.dropAttempt(attempt)
			}
			return
		}
		if !errors.Is(err, ErrTransportFailure) || ctx.Err() != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			if !p.post(func() { p.failConnect(attempt, err, done) }) {
				p.dropAttempt(attempt)
			}
			return
		}

		logger.Debug("Worker unreachable, retrying", "address", p.address, "error", err)
		timer := time.NewTimer(p.connectRetry)
		select {
		case <-ctx.Done():
			timer.Stop()
			if !p.post(func() { p.failConnect(attempt, ctx.Err(), done) }) {
				p.dropAttempt(attempt)
			}
			return
		case <-timer.C:
		}
	}
}

func (p *Proxy) bind(ctx context.Context, sender ipc.CommandSender) (Binding, error) {
	resp, err := sender.Send(ctx, ipc.NewCommand(worker.CmdBind, nil))
	if err != nil {
		return Binding{}, &TransportError{Op: "bind", Err: err}
	}
	if resp.Status != ipc.StatusOK {
		return Binding{}, &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	b := Binding{Address: p.address, sender: sender}
	b.WorkerID, _ = resp.Data["worker"].(string)
	b.PID, _ = asInt(resp.Data["pid"])
	if ms, ok := asInt(resp.Data["delay_ms"]); ok {
		b.Delay = time.Duration(ms) * time.Millisecond
	}
	return b, nil
}

// completeConnect runs on the primary context.
func (p *Proxy) completeConnect(attempt uint64, b Binding, done func(error)) {
	p.mu.Lock()
	if p.attempt != attempt || p.connecting == nil {
		// Disconnect 已经放弃了这次握手
		p.mu.Unlock()
		done(context.Canceled)
		return
	}
	p.connecting()
	p.connecting = nil
	p.sessions++
	p.session = &session{id: p.sessions, binding: b}
	p.mu.Unlock()

	logger.Info("Connected to worker", "worker", b.WorkerID, "pid", b.PID, "delay", b.Delay)
	done(nil)
}

// failConnect runs on the primary context.
func (p *Proxy) failConnect(attempt uint64, err error, done func(error)) {
	p.dropAttempt(attempt)
	logger.Debug("Binding abandoned", "address", p.address, "error", err)
	done(err)
}

// dropAttempt forgets a handshake that ended without a session.
func (p *Proxy) dropAttempt(attempt uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempt == attempt && p.connecting != nil {
		p.connecting()
		p.connecting = nil
	}
}

// Disconnect drops the session and abandons a pending handshake. Results of
// calls still running are discarded when they arrive.
func (p *Proxy) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connecting != nil {
		p.connecting()
		p.connecting = nil
	}
	p.attempt++
	if p.session != nil {
		logger.Info("Disconnected from worker", "worker", p.session.binding.WorkerID)
		p.session = nil
	}
}

// CallRemote sends name to the worker on a new goroutine and returns at once.
// deliver runs on the primary context with the greeting or the error. When no
// session is live, or a call is already outstanding, CallRemote fails
// immediately and deliver is never called.
func (p *Proxy) CallRemote(name string, deliver func(greeting string, err error)) error {
	s, err := p.acquire()
	if err != nil {
		return err
	}

	go func() {
		greeting, err := p.invoke(context.Background(), s.binding, name)
		ok := p.post(func() {
			live, disconnected := p.settle(s, err)
			if !live {
				logger.Debug("Session replaced, dropping result", "session", s.id)
				return
			}
			deliver(greeting, err)
			// 已经在主上下文里，直接调用；再次 Post 会卡住不带缓冲的事件循环
			if disconnected != nil {
				disconnected()
			}
		})
		if !ok {
			logger.Debug("Primary context gone, dropping result", "session", s.id)
		}
	}()
	return nil
}

// Call is the blocking form of CallRemote. It must not run on the primary context.
func (p *Proxy) Call(ctx context.Context, name string) (string, error) {
	s, err := p.acquire()
	if err != nil {
		return "", err
	}
	greeting, err := p.invoke(ctx, s.binding, name)
	if _, disconnected := p.settle(s, err); disconnected != nil {
		p.post(disconnected)
	}
	return greeting, err
}

func (p *Proxy) acquire() (*session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, ErrNotConnected
	}
	if p.session.inFlight {
		return nil, ErrCallInFlight
	}
	p.session.inFlight = true
	return p.session, nil
}

// settle ends the call on s and reports whether s is still the live session.
// A broken channel drops the session; the returned func runs the disconnect
// hook and is left to the caller so it can run on the primary context.
func (p *Proxy) settle(s *session, err error) (live bool, disconnected func()) {
	p.mu.Lock()
	if p.session != s {
		p.mu.Unlock()
		return false, nil
	}
	s.inFlight = false
	gone := workerGone(err)
	if gone {
		p.session = nil
	}
	hook := p.onDisconnected
	p.mu.Unlock()

	if gone {
		logger.Warn("Worker went away", "worker", s.binding.WorkerID, "error", err)
		if hook != nil {
			disconnected = func() { hook(err) }
		}
	}
	return true, disconnected
}

func (p *Proxy) invoke(ctx context.Context, b Binding, name string) (string, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}

	logger.Debug("Calling worker", "worker", b.WorkerID, "name", name)
	resp, err := b.sender.Send(ctx, ipc.NewCommand(worker.CmdDoName, map[string]any{"name": name}))
	if err != nil {
		return "", &TransportError{Op: "call", Err: err}
	}
	if resp.Status != ipc.StatusOK {
		return "", &RemoteError{Code: resp.Code, Message: resp.Error}
	}
	greeting, ok := resp.Data["greeting"].(string)
	if !ok {
		return "", &TransportError{Op: "decode", Err: fmt.Errorf("response %s carries no greeting", resp.ID)}
	}
	return greeting, nil
}

func (p *Proxy) post(fn func()) bool {
	return p.dispatcher.Post(fn)
}

// workerGone separates a broken channel from a call that merely ran out of time.
func workerGone(err error) bool {
	if !errors.Is(err, ErrTransportFailure) {
		return false
	}
	return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
}
