package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockHeldError is returned when another process holds the instance lock.
type LockHeldError struct {
	PID      int
	Instance string
	Path     string
}

func (e *LockHeldError) Error() string {
	if e.Instance != "" {
		return fmt.Sprintf("instance %q already served by PID %d (%s)", e.Instance, e.PID, e.Path)
	}
	return fmt.Sprintf("instance lock held by PID %d (%s)", e.PID, e.Path)
}

// Lock represents an acquired instance lock file.
type Lock struct {
	file *os.File
	path string
}

// Holder describes the process recorded in a lock file.
type Holder struct {
	PID      int
	Instance string
	Since    time.Time
}

// Acquire attempts to acquire an exclusive lock on the instance directory.
// Returns LockHeldError if another process already holds it.
func Acquire(dir, instance string) (*Lock, error) {
	lockPath := filepath.Join(dir, "LOCK")

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create instance dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		// Read existing PID from file for diagnostics.
		data, _ := os.ReadFile(lockPath)
		h := parse(string(data))
		_ = f.Close()
		return nil, &LockHeldError{PID: h.PID, Instance: h.Instance, Path: lockPath}
	}

	// Write PID, instance and timestamp.
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	content := fmt.Sprintf("pid=%d\ninstance=%s\ntime=%s\n", os.Getpid(), instance, time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath}, nil
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadHolder reports the process recorded in dir's lock file. ok is false
// when no lock file exists.
func ReadHolder(dir string) (h Holder, ok bool) {
	data, err := os.ReadFile(filepath.Join(dir, "LOCK"))
	if err != nil {
		return Holder{}, false
	}
	return parse(string(data)), true
}

func parse(content string) Holder {
	var h Holder
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			h.PID, _ = strconv.Atoi(value)
		case "instance":
			h.Instance = value
		case "time":
			h.Since, _ = time.Parse(time.RFC3339, value)
		}
	}
	return h
}
