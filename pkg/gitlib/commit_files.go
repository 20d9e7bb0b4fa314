package gitlib

import (
	"context"
	"fmt"
	"slices"
)

// CommitFiles lists the files a commit touched. With a non-zero other, the two
// commits are compared instead (see CompareCommits). Paths are reported as
// seen on the newer side.
func CommitFiles(ctx context.Context, repoPath string, id, other Hash) ([]StatusItem, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) ([]StatusItem, error) {
		return repo.CommitFiles(id, other)
	})
}

// CommitFiles lists the files a commit touched, or the files that differ
// between id and other when other is non-zero.
func (r *Repository) CommitFiles(id, other Hash) ([]StatusItem, error) {
	diffs, err := r.commitOrCompareDiff(id, other, nil)
	if err != nil {
		return nil, err
	}
	defer freeDiffs(diffs)

	var items []StatusItem

	for _, diff := range diffs {
		part, itemsErr := diff.Items()
		if itemsErr != nil {
			return nil, itemsErr
		}

		items = append(items, part...)
	}

	if len(diffs) > 1 {
		items = mergeByPath(items, func(item StatusItem) string { return item.Path })
		SortStatusItems(items)
	}

	if items == nil {
		items = []StatusItem{}
	}

	return items, nil
}

// FileDiffs returns the patches of a commit (or of a commit comparison when
// other is non-zero), optionally restricted to a single path.
func FileDiffs(ctx context.Context, repoPath string, id, other Hash, path string) ([]FileDiff, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) ([]FileDiff, error) {
		var pathspec []string
		if path != "" {
			pathspec = []string{path}
		}

		diffs, err := repo.commitOrCompareDiff(id, other, pathspec)
		if err != nil {
			return nil, err
		}
		defer freeDiffs(diffs)

		files := []FileDiff{}

		for _, diff := range diffs {
			part, patchErr := diff.FileDiffs()
			if patchErr != nil {
				return nil, patchErr
			}

			files = append(files, part...)
		}

		if len(diffs) > 1 {
			files = mergeByPath(files, func(f FileDiff) string { return f.Path })
			slices.SortStableFunc(files, func(a, b FileDiff) int { return ComparePaths(a.Path, b.Path) })
		}

		return files, nil
	})
}

func (r *Repository) commitOrCompareDiff(id, other Hash, pathspec []string) ([]*Diff, error) {
	if !other.IsZero() {
		diff, err := r.CompareCommits(id, other, pathspec)
		if err != nil {
			return nil, err
		}

		return []*Diff{diff}, nil
	}

	return r.CommitDiff(id, pathspec)
}

// CommitDiff diffs a commit against its first parent (the empty tree for a
// root commit). For a stash commit that recorded untracked files, the diff of
// the untracked-files parent is appended so the stash reads as one change set.
// The caller frees every returned diff.
func (r *Repository) CommitDiff(id Hash, pathspec []string) ([]*Diff, error) {
	commit, err := r.LookupCommit(id)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	primary, err := r.diffAgainstFirstParent(commit, pathspec)
	if err != nil {
		return nil, err
	}

	diffs := []*Diff{primary}

	shape, err := r.ClassifyCommit(commit)
	if err != nil {
		freeDiffs(diffs)

		return nil, err
	}

	if shape.HasUntracked() {
		untracked, untrackedErr := r.LookupCommit(shape.Stash.Untracked)
		if untrackedErr != nil {
			freeDiffs(diffs)

			return nil, untrackedErr
		}
		defer untracked.Free()

		secondary, diffErr := r.diffAgainstFirstParent(untracked, pathspec)
		if diffErr != nil {
			freeDiffs(diffs)

			return nil, diffErr
		}

		diffs = append(diffs, secondary)
	}

	return diffs, nil
}

func (r *Repository) diffAgainstFirstParent(commit *Commit, pathspec []string) (*Diff, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	parentTree, err := commit.ParentTree()
	if err != nil {
		return nil, err
	}
	defer parentTree.Free()

	return r.DiffTreeToTree(parentTree, tree, DiffOptions{Pathspec: pathspec, ShowBinary: true})
}

// CompareCommits diffs two arbitrary commits. The commit with the earlier
// committer timestamp is the base regardless of argument order. On equal
// timestamps an ancestor is the base; unrelated commits fall back to object id
// order.
func (r *Repository) CompareCommits(a, b Hash, pathspec []string) (*Diff, error) {
	first, err := r.LookupCommit(a)
	if err != nil {
		return nil, err
	}
	defer first.Free()

	second, err := r.LookupCommit(b)
	if err != nil {
		return nil, err
	}
	defer second.Free()

	older, newer, err := r.orderByTime(first, second)
	if err != nil {
		return nil, err
	}

	oldTree, err := older.Tree()
	if err != nil {
		return nil, err
	}
	defer oldTree.Free()

	newTree, err := newer.Tree()
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	diff, err := r.DiffTreeToTree(oldTree, newTree, DiffOptions{Pathspec: pathspec, ShowBinary: true})
	if err != nil {
		return nil, fmt.Errorf("compare %s..%s: %w", older.Hash().Short(), newer.Hash().Short(), err)
	}

	return diff, nil
}

func (r *Repository) orderByTime(a, b *Commit) (older, newer *Commit, err error) {
	ta, tb := a.Time(), b.Time()

	switch {
	case ta.Before(tb):
		return a, b, nil
	case tb.Before(ta):
		return b, a, nil
	}

	aID, bID := a.Hash().ToOid(), b.Hash().ToOid()

	aNewer, err := r.repo.DescendantOf(aID, bID)
	if err != nil {
		return nil, nil, fmt.Errorf("check ancestry of %s: %w", a.Hash().Short(), err)
	}

	if aNewer {
		return b, a, nil
	}

	bNewer, err := r.repo.DescendantOf(bID, aID)
	if err != nil {
		return nil, nil, fmt.Errorf("check ancestry of %s: %w", b.Hash().Short(), err)
	}

	if bNewer || b.Hash().Compare(a.Hash()) >= 0 {
		return a, b, nil
	}

	return b, a, nil
}

// mergeByPath drops later entries whose key was already seen, so the primary
// diff wins when two merged diffs touch the same path.
func mergeByPath[T any](entries []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]

	for _, entry := range entries {
		k := key(entry)
		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, entry)
	}

	return out
}

func freeDiffs(diffs []*Diff) {
	for _, diff := range diffs {
		diff.Free()
	}
}
