package gitlib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// addWorktree lays out a linked working tree the way "git worktree add"
// does and checks it out. An empty branch leaves the worktree HEAD detached
// at target.
func (tr *testRepo) addWorktree(name, branch string, target gitlib.Hash) string {
	tr.t.Helper()

	admin := filepath.Join(filepath.Clean(tr.native.Path()), "worktrees", name)
	dir := filepath.Join(tr.t.TempDir(), name)

	require.NoError(tr.t, os.MkdirAll(admin, 0o755))
	require.NoError(tr.t, os.MkdirAll(dir, 0o755))

	head := target.String() + "\n"

	if branch != "" {
		commit, err := tr.native.LookupCommit(target.ToOid())
		require.NoError(tr.t, err)

		ref, err := tr.native.CreateBranch(branch, commit, false)
		require.NoError(tr.t, err)

		ref.Free()
		commit.Free()

		head = "ref: refs/heads/" + branch + "\n"
	}

	files := map[string]string{
		filepath.Join(admin, "HEAD"):      head,
		filepath.Join(admin, "commondir"): "../..\n",
		filepath.Join(admin, "gitdir"):    filepath.Join(dir, ".git") + "\n",
		filepath.Join(dir, ".git"):        "gitdir: " + admin + "\n",
	}

	for path, content := range files {
		require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
	}

	linked, err := git2go.OpenRepository(dir)
	require.NoError(tr.t, err)

	defer linked.Free()

	require.NoError(tr.t, linked.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce}))

	return dir
}

func TestWorktreesNone(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "a\n")
	tr.commit("base")

	worktrees, err := gitlib.Worktrees(context.Background(), tr.path)
	require.NoError(t, err)
	assert.NotNil(t, worktrees)
	assert.Empty(t, worktrees)
}

func TestWorktreesLinked(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "a\n")
	base := tr.commit("base")

	feature := tr.addWorktree("feature", "feature", base)
	detached := tr.addWorktree("hotfix", "", base)

	assert.FileExists(t, filepath.Join(feature, "a.txt"))

	ctx := context.Background()

	worktrees, err := gitlib.Worktrees(ctx, tr.path)
	require.NoError(t, err)

	assert.Equal(t, []gitlib.Worktree{
		{Name: "feature", Path: feature, Branch: "feature", Head: base, Clean: true, Valid: true},
		{Name: "hotfix", Path: detached, Head: base, Clean: true, Valid: true},
	}, worktrees)

	require.NoError(t, os.WriteFile(filepath.Join(feature, "a.txt"), []byte("edited\n"), 0o644))

	worktrees, err = gitlib.Worktrees(ctx, tr.path)
	require.NoError(t, err)
	require.Len(t, worktrees, 2)
	assert.False(t, worktrees[0].Clean)
	assert.True(t, worktrees[1].Clean)

	clean, err := gitlib.IsWorkdirClean(ctx, tr.path, gitlib.UntrackedAll)
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestWorktreesFromLinkedWorktree(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "a\n")
	base := tr.commit("base")

	feature := tr.addWorktree("feature", "feature", base)

	worktrees, err := gitlib.Worktrees(context.Background(), feature)
	require.NoError(t, err)
	require.Len(t, worktrees, 1)
	assert.Equal(t, "feature", worktrees[0].Name)
	assert.Equal(t, feature, worktrees[0].Path)
}

func TestWorktreesMissingDirectory(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.createFile("a.txt", "a\n")
	base := tr.commit("base")

	gone := tr.addWorktree("gone", "gone", base)
	require.NoError(t, os.RemoveAll(gone))

	worktrees, err := gitlib.Worktrees(context.Background(), tr.path)
	require.NoError(t, err)

	assert.Equal(t, []gitlib.Worktree{{Name: "gone", Path: gone}}, worktrees)
}

func TestWorktreesInvalidPath(t *testing.T) {
	t.Parallel()

	_, err := gitlib.Worktrees(context.Background(), t.TempDir())
	require.ErrorIs(t, err, gitlib.ErrInvalidRepoPath)
}
