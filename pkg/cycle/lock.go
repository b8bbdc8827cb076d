package cycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Umm-e-Habiba1999/ai-employee/pkg/core"
)

// LockFile is the cycle lock's file name inside the system directory.
const LockFile = "cycle.lock"

// LockInfo describes the process holding the cycle lock.
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// Lock keeps two processes from running a cycle over the same vault at once.
// The lock file itself is never removed; only the advisory lock on it is
// released.
type Lock struct {
	path     string
	infoPath string
	fileLock *flock.Flock
}

// NewLock returns a lock backed by the file at path.
func NewLock(path string) *Lock {
	return &Lock{
		path:     path,
		infoPath: path + ".info",
		fileLock: flock.New(path),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire takes the lock without blocking. It reports false when another
// process holds it.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, lockErr(err)
	}
	locked, err := l.fileLock.TryLock()
	if err != nil {
		return false, lockErr(err)
	}
	if !locked {
		return false, nil
	}

	hostname, _ := os.Hostname()
	data, err := json.Marshal(LockInfo{PID: os.Getpid(), Hostname: hostname, StartedAt: time.Now()})
	if err == nil {
		// The info file is advisory; the lock is already ours.
		_ = os.WriteFile(l.infoPath, data, 0o644)
	}
	return true, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if !l.fileLock.Locked() {
		return nil
	}
	_ = os.Remove(l.infoPath)
	if err := l.fileLock.Unlock(); err != nil {
		return fmt.Errorf("failed to release cycle lock: %w", err)
	}
	return nil
}

// Holder returns who holds the lock, or nil when it is free.
func (l *Lock) Holder() (*LockInfo, error) {
	probe := flock.New(l.path)
	locked, err := probe.TryLock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, lockErr(err)
	}
	if locked {
		_ = probe.Unlock()
		return nil, nil
	}

	info := &LockInfo{}
	data, err := os.ReadFile(l.infoPath)
	if err != nil {
		return info, nil
	}
	if err := json.Unmarshal(data, info); err != nil {
		return &LockInfo{}, nil
	}
	return info, nil
}

func lockErr(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: cycle lock: %v", core.ErrStorage, err)
	}
	return fmt.Errorf("cycle lock: %w", err)
}
