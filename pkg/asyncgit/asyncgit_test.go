package asyncgit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/asyncgit"
	"github.com/Sumatoshi-tech/gitpulse/pkg/asyncjob"
	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// newRepo creates a repository holding file1.txt in a single commit.
func newRepo(t *testing.T) (string, gitlib.Hash) {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	defer repo.Free()

	err = os.WriteFile(filepath.Join(dir, "file1.txt"), []byte("test file1 content"), 0o644)
	require.NoError(t, err)

	index, err := repo.Index()
	require.NoError(t, err)

	defer index.Free()

	require.NoError(t, index.AddByPath("file1.txt"))
	require.NoError(t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(t, err)

	tree, err := repo.LookupTree(treeID)
	require.NoError(t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: time.Unix(1700000000, 0)}

	oid, err := repo.CreateCommit("HEAD", sig, sig, "add file1", tree)
	require.NoError(t, err)

	return dir, gitlib.HashFromOid(oid)
}

// linkWorktree adds a linked worktree checked out on a new branch named
// after the worktree.
func linkWorktree(t *testing.T, repoPath, name string, target gitlib.Hash) string {
	t.Helper()

	repo, err := git2go.OpenRepository(repoPath)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(target.ToOid())
	require.NoError(t, err)

	defer commit.Free()

	branch, err := repo.CreateBranch(name, commit, false)
	require.NoError(t, err)

	branch.Free()

	admin := filepath.Join(filepath.Clean(repo.Path()), "worktrees", name)
	dir := filepath.Join(t.TempDir(), name)

	require.NoError(t, os.MkdirAll(admin, 0o755))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(admin, "HEAD"), []byte("ref: refs/heads/"+name+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(admin, "commondir"), []byte("../..\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(admin, "gitdir"), []byte(filepath.Join(dir, ".git")+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git"), []byte("gitdir: "+admin+"\n"), 0o644))

	linked, err := git2go.OpenRepository(dir)
	require.NoError(t, err)

	defer linked.Free()

	require.NoError(t, linked.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce}))

	return dir
}

func TestCommitFilesSlot(t *testing.T) {
	t.Parallel()

	path, id := newRepo(t)
	notifier := asyncjob.NewNotifier(4)

	slot := asyncgit.NewCommitFiles(path, asyncjob.Deps{Notifier: notifier})

	params := asyncgit.CommitFilesParams{ID: id}
	require.NoError(t, slot.Fetch(context.Background(), params))

	note, ok := notifier.Recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, asyncjob.KindCommitFiles, note.Kind)
	require.NoError(t, note.Err)

	gotParams, items, ok := slot.Current()
	require.True(t, ok)
	assert.Equal(t, params, gotParams)
	assert.Equal(t, []gitlib.StatusItem{{Path: "file1.txt", Kind: gitlib.StatusNew}}, items)
}

func TestStatusSlotWithPool(t *testing.T) {
	t.Parallel()

	path, _ := newRepo(t)

	err := os.WriteFile(filepath.Join(path, "file1.txt"), []byte("changed"), 0o644)
	require.NoError(t, err)

	pool := asyncjob.NewPool(2)
	defer pool.Stop()

	notifier := asyncjob.NewNotifier(4)
	jobs := asyncgit.NewJobs(path, asyncjob.Deps{Executor: pool, Notifier: notifier})

	params := asyncgit.StatusParams{Scope: gitlib.ScopeWorkdir, Untracked: gitlib.UntrackedAll}
	require.NoError(t, jobs.Status.Fetch(context.Background(), params))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	note, ok := notifier.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, asyncjob.KindStatus, note.Kind)
	require.NoError(t, note.Err)

	_, items, ok := jobs.Status.Current()
	require.True(t, ok)
	assert.Equal(t, []gitlib.StatusItem{{Path: "file1.txt", Kind: gitlib.StatusModified}}, items)
	assert.Empty(t, jobs.Pending())
}

func TestStatusTickForcesRescan(t *testing.T) {
	t.Parallel()

	path, _ := newRepo(t)
	notifier := asyncjob.NewNotifier(4)
	slot := asyncgit.NewStatus(path, asyncjob.Deps{Notifier: notifier})

	ctx := context.Background()
	params := asyncgit.StatusParams{Scope: gitlib.ScopeWorkdir, Untracked: gitlib.UntrackedAll}

	require.NoError(t, slot.Fetch(ctx, params))

	_, items, ok := slot.Current()
	require.True(t, ok)
	assert.Empty(t, items)

	err := os.WriteFile(filepath.Join(path, "new.txt"), []byte("new"), 0o644)
	require.NoError(t, err)

	require.NoError(t, slot.Fetch(ctx, params))

	_, items, _ = slot.Current()
	assert.Empty(t, items, "same params reuse the cached scan")

	params.Tick++
	require.NoError(t, slot.Fetch(ctx, params))

	_, items, _ = slot.Current()
	assert.Equal(t, []gitlib.StatusItem{{Path: "new.txt", Kind: gitlib.StatusNew}}, items)
}

func TestFailedFetchSurfacesError(t *testing.T) {
	t.Parallel()

	path, _ := newRepo(t)
	notifier := asyncjob.NewNotifier(4)
	slot := asyncgit.NewCommitFiles(path, asyncjob.Deps{Notifier: notifier})

	missing, err := gitlib.ParseHash("0123456789abcdef0123456789abcdef01234567")
	require.NoError(t, err)

	require.NoError(t, slot.Fetch(context.Background(), asyncgit.CommitFilesParams{ID: missing}))

	note, ok := notifier.Recv(context.Background())
	require.True(t, ok)
	assert.True(t, note.Failed())

	_, _, ok = slot.Current()
	assert.False(t, ok)
}

func TestDiffAndLogSlots(t *testing.T) {
	t.Parallel()

	path, id := newRepo(t)
	jobs := asyncgit.NewJobs(path, asyncjob.Deps{})
	ctx := context.Background()

	require.NoError(t, jobs.Diff.Fetch(ctx, asyncgit.DiffParams{ID: id, Path: "file1.txt"}))

	_, files, ok := jobs.Diff.Current()
	require.True(t, ok)
	require.Len(t, files, 1)
	assert.Equal(t, "file1.txt", files[0].Path)

	require.NoError(t, jobs.Log.Fetch(ctx, asyncgit.LogParams{Limit: 10}))

	_, log, ok := jobs.Log.Current()
	require.True(t, ok)
	require.Len(t, log, 1)
	assert.Equal(t, id, log[0].ID)

	require.NoError(t, jobs.StashList.Fetch(ctx, asyncgit.StashListParams{}))

	_, stashes, ok := jobs.StashList.Current()
	require.True(t, ok)
	assert.Empty(t, stashes)
}

func TestWorktreesSlot(t *testing.T) {
	t.Parallel()

	path, id := newRepo(t)
	jobs := asyncgit.NewJobs(path, asyncjob.Deps{})
	ctx := context.Background()

	require.NoError(t, jobs.Worktrees.Fetch(ctx, asyncgit.WorktreesParams{}))

	_, worktrees, ok := jobs.Worktrees.Current()
	require.True(t, ok)
	assert.Empty(t, worktrees)

	linked := linkWorktree(t, path, "review", id)

	require.NoError(t, jobs.Worktrees.Fetch(ctx, asyncgit.WorktreesParams{Tick: 1}))

	params, worktrees, ok := jobs.Worktrees.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(1), params.Tick)
	assert.Equal(t, []gitlib.Worktree{
		{Name: "review", Path: linked, Branch: "review", Head: id, Clean: true, Valid: true},
	}, worktrees)
	assert.Empty(t, jobs.Pending())
}
