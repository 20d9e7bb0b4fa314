package gitlib

import (
	"context"
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrAlreadyUpToDate is returned when the upstream has nothing to merge.
var ErrAlreadyUpToDate = errors.New("already up to date")

// MergeUpstreamFastForward advances a checked-out local branch to its upstream
// tracking branch. Anything other than a clean fast-forward fails without
// touching HEAD or the working tree.
func MergeUpstreamFastForward(ctx context.Context, repoPath, branch string) error {
	_, err := writeRepo(ctx, repoPath, func(repo *Repository) (struct{}, error) {
		return struct{}{}, repo.MergeUpstreamFastForward(branch)
	})

	return err
}

// MergeUpstreamFastForward advances branch to its upstream. See the package
// level function of the same name.
func (r *Repository) MergeUpstreamFastForward(branchName string) error {
	branch, err := r.repo.LookupBranch(branchName, git2go.BranchLocal)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return fmt.Errorf("%w: %s", ErrBranchNotFound, branchName)
		}

		return fmt.Errorf("lookup branch %s: %w", branchName, err)
	}
	defer branch.Free()

	upstreamID, err := branchUpstream(branch, branchName)
	if err != nil {
		return err
	}

	annotated, err := r.repo.LookupAnnotatedCommit(upstreamID.ToOid())
	if err != nil {
		return fmt.Errorf("lookup upstream commit: %w", err)
	}
	defer annotated.Free()

	analysis, _, err := r.repo.MergeAnalysis([]*git2go.AnnotatedCommit{annotated})
	if err != nil {
		return fmt.Errorf("merge analysis: %w", err)
	}

	switch {
	case analysis&git2go.MergeAnalysisUnborn != 0:
		return ErrUnbornHead
	case analysis&git2go.MergeAnalysisUpToDate != 0:
		return ErrAlreadyUpToDate
	case analysis&git2go.MergeAnalysisFastForward == 0:
		return ErrNotFastForward
	}

	isHead, err := branch.IsHead()
	if err != nil {
		return fmt.Errorf("check branch head: %w", err)
	}

	if !isHead {
		return fmt.Errorf("%w: %s", ErrBranchNotHead, branchName)
	}

	return r.fastForward(branch, upstreamID)
}

func branchUpstream(branch *git2go.Branch, branchName string) (Hash, error) {
	upstream, err := branch.Upstream()
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return Hash{}, fmt.Errorf("%w: %s", ErrNoUpstream, branchName)
		}

		return Hash{}, fmt.Errorf("resolve upstream of %s: %w", branchName, err)
	}
	defer upstream.Free()

	resolved, err := upstream.Resolve()
	if err != nil {
		return Hash{}, fmt.Errorf("resolve upstream of %s: %w", branchName, err)
	}
	defer resolved.Free()

	return HashFromOid(resolved.Target()), nil
}

func (r *Repository) fastForward(branch *git2go.Branch, target Hash) error {
	commit, err := r.LookupCommit(target)
	if err != nil {
		return err
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return err
	}
	defer tree.Free()

	err = r.repo.CheckoutTree(tree.Native(), &git2go.CheckoutOptions{Strategy: git2go.CheckoutSafe})
	if err != nil {
		return fmt.Errorf("checkout upstream tree: %w", err)
	}

	moved, err := branch.SetTarget(target.ToOid(), "fast-forward to "+target.Short())
	if err != nil {
		return fmt.Errorf("move branch: %w", err)
	}

	moved.Free()

	return nil
}
