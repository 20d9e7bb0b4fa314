package gitlib

import (
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open repository: %w: empty path", ErrInvalidRepoPath)
	}

	if isRemoteURI(path) {
		return nil, fmt.Errorf("open repository: %w: remote URI %s", ErrInvalidRepoPath, path)
	}

	repo, err := git2go.OpenRepository(path)
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
			return nil, fmt.Errorf("open repository %s: %w: %w", path, ErrInvalidRepoPath, err)
		}

		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the path the repository was opened with.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// HasWorkdir reports whether the repository has a working tree. Bare
// repositories without a linked worktree do not.
func (r *Repository) HasWorkdir() bool {
	return !r.repo.IsBare() && r.repo.Workdir() != ""
}

// Head returns the commit HEAD points at.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if git2go.IsErrorCode(err, git2go.ErrorCodeUnbornBranch) {
			return Hash{}, ErrUnbornHead
		}

		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash.Short(), err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// DiffOptions narrows and shapes a tree-to-tree diff.
type DiffOptions struct {
	// Pathspec restricts the diff to matching paths. Empty means everything.
	Pathspec []string
	// ShowBinary includes binary content in generated patches.
	ShowBinary bool
}

// DiffTreeToTree computes the diff between two trees. A nil tree stands for the
// empty tree.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree, opts DiffOptions) (*Diff, error) {
	nativeOpts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	if len(opts.Pathspec) > 0 {
		nativeOpts.Pathspec = opts.Pathspec
	}

	if opts.ShowBinary {
		nativeOpts.Flags |= git2go.DiffShowBinary
	}

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &nativeOpts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return &Diff{diff: diff}, nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}
