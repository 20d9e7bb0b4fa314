package gitlib

import (
	"context"
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNothingToStash is returned by StashSave on a clean working copy.
var ErrNothingToStash = errors.New("nothing to stash")

// Stash commits record HEAD and the index as parents, plus an optional third
// parent holding the untracked files.
const (
	stashMinParents = 2
	stashMaxParents = 3
)

// ShapeKind tags the result of ClassifyCommit.
type ShapeKind uint8

const (
	// ShapeOrdinary is any commit that is not a stash entry.
	ShapeOrdinary ShapeKind = iota
	// ShapeStash is a stash entry commit.
	ShapeStash
)

// StashParents names the parents of a stash commit.
type StashParents struct {
	Head      Hash
	Index     Hash
	Untracked Hash // zero when the stash was saved without untracked files.
}

// CommitShape is the classification of a commit.
type CommitShape struct {
	Kind  ShapeKind
	Stash StashParents // set only for ShapeStash.
}

// HasUntracked reports whether the stash recorded untracked files.
func (s CommitShape) HasUntracked() bool {
	return s.Kind == ShapeStash && !s.Stash.Untracked.IsZero()
}

// ClassifyCommit decides whether commit is a stash entry. A commit counts as
// one when it is listed in the stash and has the stash parent shape; merge
// commits with the same parent count are left ordinary.
func (r *Repository) ClassifyCommit(commit *Commit) (CommitShape, error) {
	parents := commit.NumParents()
	if parents < stashMinParents || parents > stashMaxParents {
		return CommitShape{Kind: ShapeOrdinary}, nil
	}

	listed, err := r.isStashed(commit.Hash())
	if err != nil {
		return CommitShape{}, err
	}

	if !listed {
		return CommitShape{Kind: ShapeOrdinary}, nil
	}

	return CommitShape{
		Kind: ShapeStash,
		Stash: StashParents{
			Head:      commit.ParentHash(0),
			Index:     commit.ParentHash(1),
			Untracked: commit.ParentHash(2),
		},
	}, nil
}

var errStopForeach = errors.New("stop")

func (r *Repository) isStashed(id Hash) (bool, error) {
	found := false

	err := r.repo.Stashes.Foreach(func(_ int, _ string, oid *git2go.Oid) error {
		if HashFromOid(oid) == id {
			found = true

			return errStopForeach
		}

		return nil
	})
	if err != nil && !errors.Is(err, errStopForeach) {
		return false, fmt.Errorf("list stashes: %w", err)
	}

	return found, nil
}

// StashEntry is one element of the stash list.
type StashEntry struct {
	Index   int       `json:"index" yaml:"index"`
	Message string    `json:"message" yaml:"message"`
	ID      Hash      `json:"id" yaml:"id"`
	Time    time.Time `json:"time" yaml:"time"`
}

// StashList returns the stash entries, newest first.
func StashList(ctx context.Context, repoPath string) ([]StashEntry, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) ([]StashEntry, error) {
		var entries []StashEntry

		err := repo.repo.Stashes.Foreach(func(index int, message string, oid *git2go.Oid) error {
			entries = append(entries, StashEntry{Index: index, Message: message, ID: HashFromOid(oid)})

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list stashes: %w", err)
		}

		for i := range entries {
			commit, lookupErr := repo.LookupCommit(entries[i].ID)
			if lookupErr != nil {
				return nil, lookupErr
			}

			entries[i].Time = commit.Time()
			commit.Free()
		}

		if entries == nil {
			entries = []StashEntry{}
		}

		return entries, nil
	})
}

// StashOptions controls StashSave.
type StashOptions struct {
	Message          string
	IncludeUntracked bool
	KeepIndex        bool
}

// StashSave stashes the working copy changes and returns the stash commit id.
func StashSave(ctx context.Context, repoPath string, opts StashOptions) (Hash, error) {
	return writeRepo(ctx, repoPath, func(repo *Repository) (Hash, error) {
		sig, err := repo.repo.DefaultSignature()
		if err != nil {
			return Hash{}, fmt.Errorf("stash signature: %w", err)
		}

		flags := git2go.StashDefault
		if opts.IncludeUntracked {
			flags |= git2go.StashIncludeUntracked
		}

		if opts.KeepIndex {
			flags |= git2go.StashKeepIndex
		}

		oid, err := repo.repo.Stashes.Save(sig, opts.Message, flags)
		if err != nil {
			if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
				return Hash{}, ErrNothingToStash
			}

			return Hash{}, fmt.Errorf("stash save: %w", err)
		}

		return HashFromOid(oid), nil
	})
}
