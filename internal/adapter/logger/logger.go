package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Config controls where and how verbosely the process logs.
type Config struct {
	Debug bool
	// FilePath 为空时只写控制台
	FilePath string
	// Console 在设置了 FilePath 时是否同时写 stderr；TUI 模式下必须关闭
	Console bool
}

var (
	instance *slog.Logger
	once     sync.Once
	logFile  *os.File
)

// Setup 初始化全局 logger，只生效一次
func Setup(cfg Config) {
	once.Do(func() {
		ops := &slog.HandlerOptions{
			AddSource: true,
			Level:     slog.LevelInfo,
		}
		if cfg.Debug {
			ops.Level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(output(cfg), ops)
		instance = slog.New(handler)
		slog.SetDefault(instance)
	})
}

func output(cfg Config) io.Writer {
	if cfg.FilePath == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return os.Stderr
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// 文件不可写时退回控制台，不影响主流程
		return os.Stderr
	}
	logFile = f
	if cfg.Console {
		return io.MultiWriter(os.Stderr, f)
	}
	return f
}

// get 未显式 Setup 时使用默认配置
func get() *slog.Logger {
	Setup(Config{})
	return instance
}

// Close flushes and closes the log file, if any.
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }
func Debug(msg string, args ...any) { get().Debug(msg, args...) }
