// Package asyncgit binds the gitlib queries to asyncjob slots, one slot per
// job kind, all reading the same repository.
package asyncgit

import (
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/Sumatoshi-tech/gitpulse/pkg/asyncjob"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// Slot aliases keep call sites short.
type (
	StatusSlot      = asyncjob.Slot[StatusParams, []gitlib.StatusItem]
	CommitFilesSlot = asyncjob.Slot[CommitFilesParams, []gitlib.StatusItem]
	DiffSlot        = asyncjob.Slot[DiffParams, []gitlib.FileDiff]
	LogSlot         = asyncjob.Slot[LogParams, []gitlib.CommitInfo]
	StashListSlot   = asyncjob.Slot[StashListParams, []gitlib.StashEntry]
	WorktreesSlot   = asyncjob.Slot[WorktreesParams, []gitlib.Worktree]
)

// StatusParams selects a status scan. Tick is a refresh token: the working
// copy changes under equal params, so pollers bump it to force a rescan.
type StatusParams struct {
	Scope     gitlib.StatusScope
	Untracked gitlib.UntrackedPolicy
	Tick      uint64
}

// CommitFilesParams names a commit, or a pair of commits to compare when
// Other is non-zero.
type CommitFilesParams struct {
	ID    gitlib.Hash
	Other gitlib.Hash
}

// DiffParams selects the patches of a commit or commit pair, optionally for a
// single path.
type DiffParams struct {
	ID    gitlib.Hash
	Other gitlib.Hash
	Path  string
}

// LogParams selects a history page. A zero From starts at HEAD.
type LogParams struct {
	From  gitlib.Hash
	Limit int
	Tick  uint64
}

// StashListParams carries only the refresh token.
type StashListParams struct {
	Tick uint64
}

// NewStatus creates the status slot for repoPath.
func NewStatus(repoPath string, deps asyncjob.Deps) *StatusSlot {
	return asyncjob.NewSlot(asyncjob.KindStatus,
		func(ctx context.Context, p StatusParams) ([]gitlib.StatusItem, error) {
			return gitlib.Status(ctx, repoPath, p.Scope, p.Untracked)
		},
		slices.Clone[[]gitlib.StatusItem],
		deps,
	)
}

// NewCommitFiles creates the commit file list slot for repoPath.
func NewCommitFiles(repoPath string, deps asyncjob.Deps) *CommitFilesSlot {
	return asyncjob.NewSlot(asyncjob.KindCommitFiles,
		func(ctx context.Context, p CommitFilesParams) ([]gitlib.StatusItem, error) {
			return gitlib.CommitFiles(ctx, repoPath, p.ID, p.Other)
		},
		slices.Clone[[]gitlib.StatusItem],
		deps,
	)
}

// NewDiff creates the patch slot for repoPath.
func NewDiff(repoPath string, deps asyncjob.Deps) *DiffSlot {
	return asyncjob.NewSlot(asyncjob.KindDiff,
		func(ctx context.Context, p DiffParams) ([]gitlib.FileDiff, error) {
			return gitlib.FileDiffs(ctx, repoPath, p.ID, p.Other, p.Path)
		},
		cloneFileDiffs,
		deps,
	)
}

// NewLog creates the history slot for repoPath.
func NewLog(repoPath string, deps asyncjob.Deps) *LogSlot {
	return asyncjob.NewSlot(asyncjob.KindLog,
		func(ctx context.Context, p LogParams) ([]gitlib.CommitInfo, error) {
			return gitlib.Log(ctx, repoPath, p.From, p.Limit)
		},
		slices.Clone[[]gitlib.CommitInfo],
		deps,
	)
}

// NewStashList creates the stash list slot for repoPath.
func NewStashList(repoPath string, deps asyncjob.Deps) *StashListSlot {
	return asyncjob.NewSlot(asyncjob.KindStashList,
		func(ctx context.Context, _ StashListParams) ([]gitlib.StashEntry, error) {
			return gitlib.StashList(ctx, repoPath)
		},
		slices.Clone[[]gitlib.StashEntry],
		deps,
	)
}

// NewWorktrees creates the linked worktree list slot for repoPath.
func NewWorktrees(repoPath string, deps asyncjob.Deps) *WorktreesSlot {
	return asyncjob.NewSlot(asyncjob.KindWorktrees,
		func(ctx context.Context, _ WorktreesParams) ([]gitlib.Worktree, error) {
			return gitlib.Worktrees(ctx, repoPath)
		},
		slices.Clone[[]gitlib.Worktree],
		deps,
	)
}

func cloneFileDiffs(in []gitlib.FileDiff) []gitlib.FileDiff {
	if in == nil {
		return nil
	}

	return lo.Map(in, func(f gitlib.FileDiff, _ int) gitlib.FileDiff { return f.Clone() })
}

// WorktreesParams carries only the refresh token.
type WorktreesParams struct {
	Tick uint64
}

// Jobs groups every slot of one repository behind a shared set of deps.
type Jobs struct {
	RepoPath    string
	Status      *StatusSlot
	CommitFiles *CommitFilesSlot
	Diff        *DiffSlot
	Log         *LogSlot
	StashList   *StashListSlot
	Worktrees   *WorktreesSlot
}

// NewJobs creates all slots for repoPath.
func NewJobs(repoPath string, deps asyncjob.Deps) *Jobs {
	return &Jobs{
		RepoPath:    repoPath,
		Status:      NewStatus(repoPath, deps),
		CommitFiles: NewCommitFiles(repoPath, deps),
		Diff:        NewDiff(repoPath, deps),
		Log:         NewLog(repoPath, deps),
		StashList:   NewStashList(repoPath, deps),
		Worktrees:   NewWorktrees(repoPath, deps),
	}
}

// Pending reports the kinds that currently have a query running.
func (j *Jobs) Pending() []asyncjob.Kind {
	pending := map[asyncjob.Kind]bool{
		asyncjob.KindStatus:      j.Status.IsPending(),
		asyncjob.KindCommitFiles: j.CommitFiles.IsPending(),
		asyncjob.KindDiff:        j.Diff.IsPending(),
		asyncjob.KindLog:         j.Log.IsPending(),
		asyncjob.KindStashList:   j.StashList.IsPending(),
		asyncjob.KindWorktrees:   j.Worktrees.IsPending(),
	}

	kinds := lo.Keys(lo.PickBy(pending, func(_ asyncjob.Kind, busy bool) bool { return busy }))
	slices.Sort(kinds)

	return kinds
}
