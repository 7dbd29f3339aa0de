// Package lock keeps two watch processes from serving the same inbox.
// The lock file lives outside the inbox so taking it never looks like a drop.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ning0612/Dropzone/internal/domain"
)

// DefaultStaleTimeout is how long a lock taken on another host is honoured
const DefaultStaleTimeout = 30 * time.Minute

// Holder describes the process holding an inbox
type Holder struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	Inbox     string    `json:"inbox"`
	Dropzone  string    `json:"dropzone,omitempty"`
}

// InboxLock is a file lock keyed by the absolute inbox path
type InboxLock struct {
	inbox        string
	lockPath     string
	staleTimeout time.Duration
	held         *Holder
}

// DefaultDir returns <user config dir>/dropzone/locks
func DefaultDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(configDir, "dropzone", "locks"), nil
}

// FileName returns the lock file name for an absolute inbox path
func FileName(inbox string) string {
	sum := sha256.Sum256([]byte(inbox))
	return "watch-" + hex.EncodeToString(sum[:8]) + ".lock"
}

// New creates the lock for inbox, storing it in lockDir (DefaultDir when empty)
func New(lockDir, inbox string) (*InboxLock, error) {
	abs, err := filepath.Abs(inbox)
	if err != nil {
		return nil, err
	}

	if lockDir == "" {
		if lockDir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &InboxLock{
		inbox:        abs,
		lockPath:     filepath.Join(lockDir, FileName(abs)),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// SetStaleTimeout sets how long a foreign-host lock is honoured
func (l *InboxLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Path returns the lock file path
func (l *InboxLock) Path() string {
	return l.lockPath
}

// Acquire takes the lock for the named dropzone. Acquiring again from the
// same instance only updates the dropzone name. A lock left by a dead process
// is taken over.
func (l *InboxLock) Acquire(dropzone string) error {
	if l.held != nil {
		existing, err := l.read()
		if err == nil && l.ownedBy(existing) {
			existing.Dropzone = dropzone
			if err := l.write(existing); err != nil {
				return err
			}
			l.held.Dropzone = dropzone
			return nil
		}
	}

	if existing, err := l.read(); err == nil {
		if !l.isStale(existing) {
			return &LockError{Holder: existing, Reason: "inbox is watched by another process"}
		}
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	holder := &Holder{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		Inbox:     l.inbox,
		Dropzone:  dropzone,
	}

	// O_EXCL makes creation the atomic step
	file, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			// the winner may not have written its holder yet
			existing, _ := l.read()
			return &LockError{Holder: existing, Reason: "inbox taken during acquisition"}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(holder); err != nil {
		os.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.held = holder
	return nil
}

// Release drops the lock if this instance still owns it
func (l *InboxLock) Release() error {
	if l.held == nil {
		return nil
	}

	existing, err := l.read()
	if err != nil {
		l.held = nil
		return nil
	}

	if !l.ownedBy(existing) {
		l.held = nil
		return fmt.Errorf("lock was taken over by PID %d", existing.PID)
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.held = nil
	return nil
}

// IsLocked reports whether a live holder exists
func (l *InboxLock) IsLocked() bool {
	h, err := l.read()
	if err != nil {
		return false
	}
	return !l.isStale(h)
}

// Holder returns the live holder
func (l *InboxLock) Holder() (*Holder, error) {
	h, err := l.read()
	if err != nil {
		return nil, err
	}
	if l.isStale(h) {
		return nil, fmt.Errorf("lock is stale")
	}
	return h, nil
}

// ForceRelease removes the lock file whoever holds it
func (l *InboxLock) ForceRelease() error {
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.held = nil
	return nil
}

func (l *InboxLock) read() (*Holder, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}

	var h Holder
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}
	return &h, nil
}

func (l *InboxLock) write(h *Holder) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.lockPath, data, 0644)
}

// isStale: on this host only a dead process makes a lock stale; a lock from
// another host expires after staleTimeout.
func (l *InboxLock) isStale(h *Holder) bool {
	hostname, _ := os.Hostname()
	if h.Hostname == hostname {
		return !processExists(h.PID)
	}
	return time.Since(h.StartTime) > l.staleTimeout
}

func (l *InboxLock) ownedBy(h *Holder) bool {
	if l.held == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return h.PID == os.Getpid() &&
		h.Hostname == hostname &&
		l.held.StartTime.Equal(h.StartTime)
}

// LockError reports a live holder. It matches domain.ErrAlreadyWatched.
type LockError struct {
	Holder *Holder
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot lock %s: %s (PID %d on %s since %s)",
			e.Holder.Inbox,
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf("cannot lock inbox: %s", e.Reason)
}

// Is lets errors.Is(err, domain.ErrAlreadyWatched) match
func (e *LockError) Is(target error) bool {
	return target == domain.ErrAlreadyWatched
}

// IsLockError checks if err wraps a LockError
func IsLockError(err error) bool {
	var le *LockError
	return errors.As(err, &le)
}
