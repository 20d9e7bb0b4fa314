package gitlib

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

var scpLikeURI = regexp.MustCompile(`^[A-Za-z]\w*@[A-Za-z0-9][\w.]*:`)

// isRemoteURI reports whether path looks like a clone URL rather than a local
// directory.
func isRemoteURI(path string) bool {
	return strings.Contains(path, "://") || scpLikeURI.MatchString(path)
}

// ResolveRevision turns a revision expression ("HEAD~2", a short id, a branch
// name, a full hex id) into the id of the commit it names.
func ResolveRevision(ctx context.Context, repoPath, rev string) (Hash, error) {
	if len(rev) == HashHexSize {
		if hash, err := ParseHash(rev); err == nil {
			return hash, nil
		}
	}

	return readRepo(ctx, repoPath, func(repo *Repository) (Hash, error) {
		obj, err := repo.repo.RevparseSingle(rev)
		if err != nil {
			return Hash{}, fmt.Errorf("%w: %q: %w", ErrInvalidHash, rev, err)
		}
		defer obj.Free()

		commit, err := obj.Peel(git2go.ObjectCommit)
		if err != nil {
			return Hash{}, fmt.Errorf("%w: %q is not a commit: %w", ErrInvalidHash, rev, err)
		}
		defer commit.Free()

		return HashFromOid(commit.Id()), nil
	})
}

// HeadBranch returns the short name of the branch HEAD points at. A detached
// HEAD yields ErrBranchNotHead.
func HeadBranch(ctx context.Context, repoPath string) (string, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) (string, error) {
		detached, err := repo.repo.IsHeadDetached()
		if err != nil {
			return "", fmt.Errorf("inspect head: %w", err)
		}

		if detached {
			return "", fmt.Errorf("%w: head is detached", ErrBranchNotHead)
		}

		head, err := repo.repo.Head()
		if err != nil {
			if git2go.IsErrorCode(err, git2go.ErrorCodeUnbornBranch) {
				return "", ErrUnbornHead
			}

			return "", fmt.Errorf("resolve head: %w", err)
		}
		defer head.Free()

		return head.Shorthand(), nil
	})
}
