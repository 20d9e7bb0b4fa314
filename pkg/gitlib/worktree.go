package gitlib

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// Worktree describes one linked working tree of a repository.
type Worktree struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"` // empty when HEAD is detached or unborn
	Head   Hash   `json:"head" yaml:"head"`
	Clean  bool   `json:"clean" yaml:"clean"`
	Valid  bool   `json:"valid" yaml:"valid"` // false when the working directory is gone and the entry awaits pruning
}

// Worktrees lists the linked working trees of the repository at repoPath,
// sorted by name. The main working tree is not included. repoPath may be the
// main working tree or any linked one.
func Worktrees(ctx context.Context, repoPath string) ([]Worktree, error) {
	worktrees, err := readRepo(ctx, repoPath, func(repo *Repository) ([]Worktree, error) {
		return repo.linkedWorktrees()
	})
	if err != nil {
		return nil, err
	}

	for i := range worktrees {
		if !worktrees[i].Valid {
			continue
		}

		if err := describeWorktree(ctx, &worktrees[i]); err != nil {
			return nil, err
		}
	}

	return worktrees, nil
}

// commonDir returns the git directory shared by every working tree.
func (r *Repository) commonDir() (string, error) {
	gitDir := filepath.Clean(r.repo.Path())

	data, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if errors.Is(err, fs.ErrNotExist) {
		return gitDir, nil
	}

	if err != nil {
		return "", fmt.Errorf("read commondir: %w", err)
	}

	return resolveAgainst(gitDir, strings.TrimSpace(string(data))), nil
}

func (r *Repository) linkedWorktrees() ([]Worktree, error) {
	common, err := r.commonDir()
	if err != nil {
		return nil, err
	}

	adminRoot := filepath.Join(common, "worktrees")

	entries, err := os.ReadDir(adminRoot)
	if errors.Is(err, fs.ErrNotExist) {
		return []Worktree{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	worktrees := make([]Worktree, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		adminDir := filepath.Join(adminRoot, entry.Name())

		data, err := os.ReadFile(filepath.Join(adminDir, "gitdir"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("read worktree %s: %w", entry.Name(), err)
		}

		// gitdir holds the path of the .git file inside the working tree.
		dotGit := resolveAgainst(adminDir, strings.TrimSpace(string(data)))
		path := filepath.Dir(dotGit)

		_, statErr := os.Stat(dotGit)

		worktrees = append(worktrees, Worktree{
			Name:  entry.Name(),
			Path:  path,
			Valid: statErr == nil,
		})
	}

	slices.SortFunc(worktrees, func(a, b Worktree) int { return strings.Compare(a.Name, b.Name) })

	return worktrees, nil
}

func describeWorktree(ctx context.Context, wt *Worktree) error {
	head, err := readRepo(ctx, wt.Path, func(repo *Repository) (Hash, error) {
		ref, err := repo.repo.Head()
		if err != nil {
			if git2go.IsErrorCode(err, git2go.ErrorCodeUnbornBranch) {
				return Hash{}, nil
			}

			return Hash{}, fmt.Errorf("resolve head: %w", err)
		}
		defer ref.Free()

		if ref.IsBranch() {
			wt.Branch = ref.Shorthand()
		}

		return HashFromOid(ref.Target()), nil
	})
	if err != nil {
		return fmt.Errorf("worktree %s: %w", wt.Name, err)
	}

	wt.Head = head

	clean, err := IsWorkdirClean(ctx, wt.Path, UntrackedFromConfig)
	if err != nil {
		return fmt.Errorf("worktree %s: %w", wt.Name, err)
	}

	wt.Clean = clean

	return nil
}

func resolveAgainst(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}
