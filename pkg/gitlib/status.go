package gitlib

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrMissingStatusPath is returned when libgit2 reports a status entry without a path.
var ErrMissingStatusPath = errors.New("status entry has no path")

// StatusKind classifies a changed path.
type StatusKind uint8

const (
	// StatusModified is the fallback for any change not covered by another kind.
	StatusModified StatusKind = iota
	// StatusNew is an added or untracked path.
	StatusNew
	// StatusDeleted is a removed path.
	StatusDeleted
	// StatusRenamed is a path detected as a rename.
	StatusRenamed
	// StatusTypechange is a path whose type changed (e.g. file to symlink).
	StatusTypechange
	// StatusConflicted is a path with unresolved merge conflicts.
	StatusConflicted
)

func (k StatusKind) String() string {
	switch k {
	case StatusNew:
		return "new"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	case StatusTypechange:
		return "typechange"
	case StatusConflicted:
		return "conflicted"
	case StatusModified:
		return "modified"
	default:
		return "unknown"
	}
}

// Short returns the one-letter marker shown in file lists.
func (k StatusKind) Short() string {
	switch k {
	case StatusNew:
		return "+"
	case StatusDeleted:
		return "-"
	case StatusRenamed:
		return "R"
	case StatusTypechange:
		return "T"
	case StatusConflicted:
		return "!"
	case StatusModified:
		return "M"
	default:
		return "?"
	}
}

// MarshalText renders the kind by name.
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// statusKindFromFlags applies the fixed precedence
// New > Deleted > Renamed > Typechange > Conflicted > Modified.
func statusKindFromFlags(s git2go.Status) StatusKind {
	switch {
	case s&(git2go.StatusIndexNew|git2go.StatusWtNew) != 0:
		return StatusNew
	case s&(git2go.StatusIndexDeleted|git2go.StatusWtDeleted) != 0:
		return StatusDeleted
	case s&(git2go.StatusIndexRenamed|git2go.StatusWtRenamed) != 0:
		return StatusRenamed
	case s&(git2go.StatusIndexTypeChange|git2go.StatusWtTypeChange) != 0:
		return StatusTypechange
	case s&git2go.StatusConflicted != 0:
		return StatusConflicted
	default:
		return StatusModified
	}
}

func statusKindFromDelta(d git2go.Delta) StatusKind {
	switch d {
	case git2go.DeltaAdded, git2go.DeltaUntracked:
		return StatusNew
	case git2go.DeltaDeleted:
		return StatusDeleted
	case git2go.DeltaRenamed:
		return StatusRenamed
	case git2go.DeltaTypeChange:
		return StatusTypechange
	case git2go.DeltaConflicted:
		return StatusConflicted
	default:
		return StatusModified
	}
}

// StatusItem is one changed path.
type StatusItem struct {
	Path string     `json:"path" yaml:"path"`
	Kind StatusKind `json:"status" yaml:"status"`
}

// StatusScope selects which side of the working copy a status scan reports.
type StatusScope uint8

const (
	// ScopeWorkdir reports index-to-working-tree changes.
	ScopeWorkdir StatusScope = iota
	// ScopeStage reports HEAD-to-index changes.
	ScopeStage
	// ScopeBoth reports both.
	ScopeBoth
)

func (s StatusScope) String() string {
	switch s {
	case ScopeStage:
		return "stage"
	case ScopeBoth:
		return "both"
	case ScopeWorkdir:
		return "workdir"
	default:
		return "unknown"
	}
}

// ParseStatusScope maps "workdir", "stage" and "both" to a scope.
func ParseStatusScope(s string) (StatusScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "workdir":
		return ScopeWorkdir, nil
	case "stage":
		return ScopeStage, nil
	case "both":
		return ScopeBoth, nil
	default:
		return ScopeWorkdir, fmt.Errorf("unknown status scope %q", s)
	}
}

func (s StatusScope) show() git2go.StatusShow {
	switch s {
	case ScopeStage:
		return git2go.StatusShowIndexOnly
	case ScopeBoth:
		return git2go.StatusShowIndexAndWorkdir
	default:
		return git2go.StatusShowWorkdirOnly
	}
}

// ComparePaths orders slash-separated paths component by component, so a
// directory's contents sort right after the directory name ("a/b" < "a.txt").
func ComparePaths(a, b string) int {
	return slices.Compare(strings.Split(a, "/"), strings.Split(b, "/"))
}

// SortStatusItems sorts items by path using ComparePaths.
func SortStatusItems(items []StatusItem) {
	slices.SortStableFunc(items, func(a, b StatusItem) int {
		return ComparePaths(a.Path, b.Path)
	})
}

// Status lists the changed paths of the working copy, sorted by path.
// Bare repositories yield an empty list.
func Status(ctx context.Context, repoPath string, scope StatusScope, policy UntrackedPolicy) ([]StatusItem, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) ([]StatusItem, error) {
		return repo.Status(scope, policy)
	})
}

// Status lists the changed paths of the working copy, sorted by path.
func (r *Repository) Status(scope StatusScope, policy UntrackedPolicy) ([]StatusItem, error) {
	if !r.HasWorkdir() {
		return []StatusItem{}, nil
	}

	list, err := r.statusList(scope, policy)
	if err != nil {
		return nil, err
	}
	defer list.Free()

	count, err := list.EntryCount()
	if err != nil {
		return nil, fmt.Errorf("count status entries: %w", err)
	}

	items := make([]StatusItem, 0, count)

	for i := range count {
		entry, entryErr := list.ByIndex(i)
		if entryErr != nil {
			return nil, fmt.Errorf("read status entry %d: %w", i, entryErr)
		}

		path := statusEntryPath(entry)
		if path == "" {
			return nil, ErrMissingStatusPath
		}

		items = append(items, StatusItem{
			Path: path,
			Kind: statusKindFromFlags(entry.Status),
		})
	}

	SortStatusItems(items)

	return items, nil
}

func (r *Repository) statusList(scope StatusScope, policy UntrackedPolicy) (*git2go.StatusList, error) {
	policy, err := policy.resolve(r)
	if err != nil {
		return nil, err
	}

	opts := &git2go.StatusOptions{
		Show:  scope.show(),
		Flags: git2go.StatusOptRenamesHeadToIndex | policy.statusFlags(),
	}

	list, err := r.repo.StatusList(opts)
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}

	return list, nil
}

// statusEntryPath prefers the HEAD-to-index new path so renames in the index
// are reported under their new name.
func statusEntryPath(entry git2go.StatusEntry) string {
	switch {
	case entry.HeadToIndex.NewFile.Path != "":
		return entry.HeadToIndex.NewFile.Path
	case entry.IndexToWorkdir.OldFile.Path != "":
		return entry.IndexToWorkdir.OldFile.Path
	default:
		return entry.IndexToWorkdir.NewFile.Path
	}
}

// IsWorkdirClean reports whether the working tree has no changes under the
// given untracked policy. Bare repositories are always clean.
func IsWorkdirClean(ctx context.Context, repoPath string, policy UntrackedPolicy) (bool, error) {
	return readRepo(ctx, repoPath, func(repo *Repository) (bool, error) {
		if !repo.HasWorkdir() {
			return true, nil
		}

		list, err := repo.statusList(ScopeWorkdir, policy)
		if err != nil {
			return false, err
		}
		defer list.Free()

		count, err := list.EntryCount()
		if err != nil {
			return false, fmt.Errorf("count status entries: %w", err)
		}

		return count == 0, nil
	})
}

// DiscardStatus throws away every working tree modification and untracked
// file, leaving the working tree and index equal to HEAD. It reports whether
// anything was discarded; a clean working tree is left untouched.
func DiscardStatus(ctx context.Context, repoPath string) (bool, error) {
	return writeRepo(ctx, repoPath, func(repo *Repository) (bool, error) {
		dirty, err := repo.hasWorkdirEdits()
		if err != nil {
			return false, err
		}

		if !dirty {
			return false, nil
		}

		err = repo.resetHardToHead()
		if err != nil {
			return false, err
		}

		return true, nil
	})
}

func (r *Repository) hasWorkdirEdits() (bool, error) {
	list, err := r.repo.StatusList(&git2go.StatusOptions{
		Show:  git2go.StatusShowIndexAndWorkdir,
		Flags: git2go.StatusOptIncludeUntracked | git2go.StatusOptRecurseUntrackedDirs,
	})
	if err != nil {
		return false, fmt.Errorf("list status: %w", err)
	}
	defer list.Free()

	count, err := list.EntryCount()
	if err != nil {
		return false, fmt.Errorf("count status entries: %w", err)
	}

	for i := range count {
		entry, entryErr := list.ByIndex(i)
		if entryErr != nil {
			return false, fmt.Errorf("read status entry %d: %w", i, entryErr)
		}

		if entry.Status&(git2go.StatusWtModified|git2go.StatusWtNew) != 0 {
			return true, nil
		}
	}

	return false, nil
}

func (r *Repository) resetHardToHead() error {
	head, err := r.Head()
	if err != nil {
		return err
	}

	commit, err := r.repo.LookupCommit(head.ToOid())
	if err != nil {
		return fmt.Errorf("lookup HEAD commit: %w", err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("get HEAD tree: %w", err)
	}
	defer tree.Free()

	checkout := &git2go.CheckoutOptions{
		Strategy: git2go.CheckoutForce | git2go.CheckoutRemoveUntracked,
	}

	err = r.repo.CheckoutTree(tree, checkout)
	if err != nil {
		return fmt.Errorf("checkout HEAD tree: %w", err)
	}

	err = r.repo.ResetToCommit(commit, git2go.ResetHard, checkout)
	if err != nil {
		return fmt.Errorf("reset to HEAD: %w", err)
	}

	return nil
}
