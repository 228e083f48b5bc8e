package storage

import (
	"os"
	"sync"
	"syscall"
)

// FileLock guards a storage file with flock plus an in-process mutex, so
// both goroutines and other processes serialize on the same file.
type FileLock struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewFileLock creates a lock for the given storage file. The lock file
// lives next to it with a .lock suffix.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock blocks until the exclusive lock is held.
func (l *FileLock) Lock() error {
	l.mu.Lock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		l.mu.Unlock()
		return err
	}

	l.file = f
	return nil
}

// TryLock acquires the lock without blocking, reporting whether it
// succeeded.
func (l *FileLock) TryLock() bool {
	if !l.mu.TryLock() {
		return false
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return false
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		l.mu.Unlock()
		return false
	}

	l.file = f
	return true
}

// Unlock releases the lock and removes the lock file.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path)

	l.file = nil
	l.mu.Unlock()
	return nil
}
