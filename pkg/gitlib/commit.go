package gitlib

import (
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author.
func (c *Commit) Author() Signature {
	return signatureFrom(c.commit.Author())
}

// Committer returns the commit committer.
func (c *Commit) Committer() Signature {
	return signatureFrom(c.commit.Committer())
}

// Time returns the committer timestamp, the one used to order commits for
// comparison.
func (c *Commit) Time() time.Time {
	return c.commit.Committer().When
}

// Summary returns the first line of the commit message.
func (c *Commit) Summary() string {
	return c.commit.Summary()
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount()) //nolint:gosec // parent counts are tiny.
}

// ParentHash returns the hash of the nth parent, or the zero hash when the
// commit has fewer parents.
func (c *Commit) ParentHash(n int) Hash {
	if n < 0 || n >= c.NumParents() {
		return Hash{}
	}

	return HashFromOid(c.commit.ParentId(uint(n)))
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return &Tree{tree: tree}, nil
}

// ParentTree returns the tree of the first parent, or nil for a root commit.
func (c *Commit) ParentTree() (*Tree, error) {
	if c.NumParents() == 0 {
		return nil, nil
	}

	parent, err := c.repo.LookupCommit(c.ParentHash(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParentNotFound, err)
	}
	defer parent.Free()

	return parent.Tree()
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}

// Native returns the underlying libgit2 commit.
func (c *Commit) Native() *git2go.Commit {
	return c.commit
}
