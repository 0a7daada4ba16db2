package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// CommandSender dispatches command messages to the daemon.
type CommandSender interface {
	Send(ctx context.Context, cmd CommandMessage) (CommandResult, error)
}

// UnixSender dials the unix socket each time Send is invoked.
type UnixSender struct {
	Socket      string
	DialTimeout time.Duration
	// Timeout bounds the whole exchange; zero leaves it to ctx.
	Timeout time.Duration
}

// NewUnixSender returns a CommandSender that communicates over a unix socket.
func NewUnixSender(socket string) *UnixSender {
	return &UnixSender{
		Socket:      socket,
		DialTimeout: 2 * time.Second,
	}
}

func (s *UnixSender) Send(ctx context.Context, cmd CommandMessage) (CommandResult, error) {
	if s == nil || s.Socket == "" {
		return CommandResult{}, fmt.Errorf("ipc: invalid unix sender")
	}
	if cmd.ID == "" {
		cmd = NewCommand(cmd.Name, cmd.Payload)
	}

	dialCtx := ctx
	if s.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.DialTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(dialCtx, "unix", s.Socket)
	if err != nil {
		return CommandResult{}, &TransportError{Op: OpConnect, Err: err}
	}
	defer conn.Close()

	if s.Timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.Timeout)); err != nil {
			return CommandResult{}, &TransportError{Op: OpConnect, Err: err}
		}
	}

	// ctx 取消时关闭连接，打断阻塞中的读写
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return CommandResult{}, &TransportError{Op: OpSend, Err: ctxErr(ctx, err)}
	}

	var resp CommandResult
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrClosed
		}
		return CommandResult{}, &TransportError{Op: OpReceive, Err: ctxErr(ctx, err)}
	}
	return resp, nil
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// FakeSender allows CLI tests to inject deterministic responses.
type FakeSender struct {
	Response CommandResult
	Err      error
	Sent     []CommandMessage
}

func (f *FakeSender) Send(ctx context.Context, cmd CommandMessage) (CommandResult, error) {
	f.Sent = append(f.Sent, cmd)
	if f.Err != nil {
		return CommandResult{}, f.Err
	}
	return f.Response, nil
}
