package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kyson/namecall/internal/adapter/logger"
	"github.com/kyson/namecall/internal/core/worker"
	"github.com/kyson/namecall/internal/env"
	"github.com/kyson/namecall/internal/ipc"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Options configure a daemon.
type Options struct {
	Paths env.Paths
	// Delay is the simulated work time of every call.
	Delay time.Duration
	// MetricsAddr enables the /metrics listener when non-empty.
	MetricsAddr string
	// Ready receives once the IPC socket accepts connections.
	Ready chan<- struct{}
}

// Daemon hosts the worker behind the IPC socket.
type Daemon struct {
	opts     Options
	worker   *worker.Worker
	registry *prometheus.Registry

	mu         sync.Mutex
	cancelFunc context.CancelFunc // 用于取消 daemon context
	lock       *env.DaemonLock
	running    bool
	started    time.Time
	inFlight   atomic.Int64
	metricsURL string
}

// NewDaemon builds a daemon controller.
func NewDaemon(opts Options) *Daemon {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return &Daemon{
		opts:     opts,
		registry: reg,
		worker: worker.New(
			worker.WithDelay(opts.Delay),
			worker.WithMetrics(worker.NewMetrics(reg)),
		),
	}
}

// Serve starts the IPC server. Blocks until ctx is cancelled or a stop command arrives.
func (d *Daemon) Serve(ctx context.Context) error {
	// 检查是否已有实例在运行（通过尝试获取锁）
	lock, err := env.AcquireLock(d.opts.Paths.LockFile)
	if err != nil {
		return fmt.Errorf("another instance is already running: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.lock = lock
	d.cancelFunc = cancel
	d.running = true
	d.started = time.Now()
	d.mu.Unlock()
	defer func() {
		cancel()
		d.cleanup()
	}()

	logger.Info("Daemon started, listening for IPC commands",
		"socket", d.opts.Paths.SocketFile, "worker", d.worker.ID(), "delay", d.worker.Delay())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ipc.Serve(gctx, d.opts.Paths.SocketFile, d, &ipc.ServerOptions{
			ReadTimeout: 5 * time.Second,
			Ready:       d.opts.Ready,
		})
	})
	if d.opts.MetricsAddr != "" {
		g.Go(func() error {
			return d.serveMetrics(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Daemon shutting down")
	return nil
}

func (d *Daemon) serveMetrics(ctx context.Context) error {
	lis, err := net.Listen("tcp", d.opts.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	d.mu.Lock()
	d.metricsURL = "http://" + lis.Addr().String()
	d.mu.Unlock()

	srv := &http.Server{
		Handler:           newMetricsRouter(d.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics serve: %w", err)
	}
	return nil
}

// MetricsURL is the base URL of the metrics listener, empty until it is up.
func (d *Daemon) MetricsURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metricsURL
}

// cleanup 清理资源
func (d *Daemon) cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancelFunc != nil {
		d.cancelFunc()
		d.cancelFunc = nil
	}
	d.running = false
	if d.lock != nil {
		if err := d.lock.Release(); err != nil {
			logger.Error("Failed to release lock", "error", err)
		}
		d.lock = nil
	}
}

// Handle routes IPC commands; everything but lifecycle commands goes to the worker.
func (d *Daemon) Handle(ctx context.Context, cmd ipc.CommandMessage) ipc.CommandResult {
	switch cmd.Name {
	case "stop":
		return d.handleStop()
	case "status":
		return d.handleStatus()
	case worker.CmdDoName:
		d.inFlight.Add(1)
		defer d.inFlight.Add(-1)
		return d.worker.Handle(ctx, cmd)
	default:
		return d.worker.Handle(ctx, cmd)
	}
}

func (d *Daemon) handleStop() ipc.CommandResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ipc.Fail(ipc.ErrCodeShuttingDown, "daemon not running")
	}
	logger.Info("Stop requested over IPC")
	// 取消 daemon context 会触发所有子服务退出
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
	return ipc.OK(nil)
}

func (d *Daemon) handleStatus() ipc.CommandResult {
	d.mu.Lock()
	running := d.running
	started := d.started
	metricsURL := d.metricsURL
	d.mu.Unlock()

	data := map[string]any{
		"running":   running,
		"pid":       os.Getpid(),
		"worker":    d.worker.ID(),
		"delay_ms":  d.worker.Delay().Milliseconds(),
		"in_flight": d.inFlight.Load(),
		"socket":    d.opts.Paths.SocketFile,
	}
	if running {
		data["uptime"] = time.Since(started).Round(time.Second).String()
	}
	if metricsURL != "" {
		data["metrics"] = metricsURL + "/metrics"
	}
	return ipc.OK(data)
}
