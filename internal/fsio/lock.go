package fsio

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"

	"github.com/jpl-au/coderd/internal/coderr"
)

// lockPollInterval is how often a blocked lock acquisition retries.
const lockPollInterval = 10 * time.Millisecond

// DefaultLockTimeout bounds how long an edit waits for another process to
// release the same file.
const DefaultLockTimeout = 5 * time.Second

// FileLock is an acquired advisory lock for one path. Release it with
// Unlock.
type FileLock struct {
	fl *flock.Flock
}

// LockPath acquires an exclusive OS-level advisory lock for path, using a
// sibling .lock file so locking works for paths that do not exist yet.
// Other coderd processes (and any flock-aware tool) editing the same path
// block until release or timeout.
func LockPath(path string, timeout time.Duration) (*FileLock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, coderr.Wrap(coderr.IO, ErrLockTimeout, "lock %s", path)
		}
		return nil, coderr.Wrap(coderr.IO, err, "lock %s", path)
	}
	if !locked {
		return nil, coderr.Wrap(coderr.IO, ErrLockTimeout, "lock %s", path)
	}
	return &FileLock{fl: fl}, nil
}

// Unlock releases the lock. Safe to call on a nil receiver.
func (l *FileLock) Unlock() {
	if l == nil || l.fl == nil {
		return
	}
	_ = l.fl.Unlock()
}
