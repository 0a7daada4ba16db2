package env

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
)

// ErrDaemonRunning is returned by AcquireLock when another daemon holds the lock.
var ErrDaemonRunning = errors.New("daemon already running")

type DaemonLock struct {
	file *os.File
	path string
}

// AcquireLock 获取文件锁，非阻塞
// 如果已经被锁定，返回 ErrDaemonRunning
func AcquireLock(path string) (*DaemonLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, ErrDaemonRunning
	}

	return &DaemonLock{
		file: f,
		path: path,
	}, nil
}

// CheckLock 检查锁是否被占用
// 如果锁被占用，返回 nil (daemon running)
// 如果锁未被占用，返回 error (daemon not running)
func CheckLock(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if os.IsNotExist(err) {
		return errors.New("daemon not running (lock file missing)")
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return nil
	}

	// 获取锁成功，说明没在运行，立即释放
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return errors.New("daemon not running")
}

// Release 释放锁，锁文件保留给 CheckLock 使用
func (l *DaemonLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
