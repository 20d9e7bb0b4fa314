package gitlib

import (
	"context"
	"path/filepath"
	"sync"
)

// repoLocks serializes mutating calls per repository path while letting
// read-only queries run side by side.
var repoLocks sync.Map // map[string]*sync.RWMutex

func lockFor(repoPath string) *sync.RWMutex {
	key := filepath.Clean(repoPath)
	if abs, err := filepath.Abs(repoPath); err == nil {
		key = abs
	}

	lock, _ := repoLocks.LoadOrStore(key, &sync.RWMutex{})

	return lock.(*sync.RWMutex) //nolint:forcetypeassert // only *sync.RWMutex is stored.
}

// readRepo opens the repository under the shared lock and runs fn.
func readRepo[T any](ctx context.Context, repoPath string, fn func(*Repository) (T, error)) (T, error) {
	lock := lockFor(repoPath)
	lock.RLock()
	defer lock.RUnlock()

	return withRepo(ctx, repoPath, fn)
}

// writeRepo opens the repository under the exclusive lock and runs fn.
func writeRepo[T any](ctx context.Context, repoPath string, fn func(*Repository) (T, error)) (T, error) {
	lock := lockFor(repoPath)
	lock.Lock()
	defer lock.Unlock()

	return withRepo(ctx, repoPath, fn)
}

func withRepo[T any](ctx context.Context, repoPath string, fn func(*Repository) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	repo, err := OpenRepository(repoPath)
	if err != nil {
		return zero, err
	}
	defer repo.Free()

	return fn(repo)
}
