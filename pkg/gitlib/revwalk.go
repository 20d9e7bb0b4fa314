package gitlib

import (
	"context"
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// CommitInfo is the log line for one commit.
type CommitInfo struct {
	ID      Hash      `json:"id" yaml:"id"`
	Summary string    `json:"summary" yaml:"summary"`
	Author  string    `json:"author" yaml:"author"`
	Time    time.Time `json:"time" yaml:"time"`
}

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
}

// Walk creates a revision walker in time + topological order.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	// Topological order ensures a child is never listed after its parent even
	// when clocks disagree.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	return &RevWalk{walk: walk}, nil
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// Next returns the next commit hash in the walk, or false when exhausted.
func (w *RevWalk) Next() (Hash, bool, error) {
	oid := new(git2go.Oid)

	err := w.walk.Next(oid)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeIterOver) {
			return Hash{}, false, nil
		}

		return Hash{}, false, fmt.Errorf("revwalk next: %w", err)
	}

	return HashFromOid(oid), true, nil
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}

// Log lists up to limit commits reachable from "from" (HEAD when zero), newest
// first. A limit of zero or less means no limit. An unborn HEAD yields an
// empty log.
func Log(ctx context.Context, repoPath string, from Hash, limit int) ([]CommitInfo, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) ([]CommitInfo, error) {
		start := from
		if start.IsZero() {
			head, err := repo.Head()
			if errors.Is(err, ErrUnbornHead) {
				return []CommitInfo{}, nil
			}

			if err != nil {
				return nil, err
			}

			start = head
		}

		walk, err := repo.Walk()
		if err != nil {
			return nil, err
		}
		defer walk.Free()

		err = walk.Push(start)
		if err != nil {
			return nil, err
		}

		infos := []CommitInfo{}

		for limit <= 0 || len(infos) < limit {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			id, ok, nextErr := walk.Next()
			if nextErr != nil {
				return nil, nextErr
			}

			if !ok {
				break
			}

			commit, lookupErr := repo.LookupCommit(id)
			if lookupErr != nil {
				return nil, lookupErr
			}

			infos = append(infos, CommitInfo{
				ID:      id,
				Summary: commit.Summary(),
				Author:  commit.Author().Name,
				Time:    commit.Time(),
			})

			commit.Free()
		}

		return infos, nil
	})
}
