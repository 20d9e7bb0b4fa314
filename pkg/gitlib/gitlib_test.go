package gitlib_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitpulse/pkg/gitlib"
)

// testRepo wraps a test repository for integration testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
	clock  time.Time
}

// newTestRepo creates a new test repository with a configured identity.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	tr := &testRepo{
		t:      t,
		path:   dir,
		native: repo,
		clock:  time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}

	tr.setConfig("user.name", "Test User")
	tr.setConfig("user.email", "test@example.com")

	return tr
}

func (tr *testRepo) setConfig(key, value string) {
	tr.t.Helper()

	cfg, err := tr.native.Config()
	require.NoError(tr.t, err)

	defer cfg.Free()

	require.NoError(tr.t, cfg.SetString(key, value))
}

// createFile creates a file in the working directory.
func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(tr.t, err)

	err = os.WriteFile(path, []byte(content), 0o644)
	require.NoError(tr.t, err)
}

// deleteFile removes a file from the working directory.
func (tr *testRepo) deleteFile(name string) {
	tr.t.Helper()

	err := os.Remove(filepath.Join(tr.path, name))
	require.NoError(tr.t, err)
}

func (tr *testRepo) readFile(name string) string {
	tr.t.Helper()

	data, err := os.ReadFile(filepath.Join(tr.path, name))
	require.NoError(tr.t, err)

	return string(data)
}

// stage records additions, modifications and deletions in the index.
func (tr *testRepo) stage() *git2go.Tree {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	require.NoError(tr.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(tr.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(tr.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	return tree
}

// signature returns a signature one minute after the previous one so commit
// times are distinct and increasing.
func (tr *testRepo) signature() *git2go.Signature {
	tr.clock = tr.clock.Add(time.Minute)

	return &git2go.Signature{Name: "Test User", Email: "test@example.com", When: tr.clock}
}

// commit stages all files and creates a commit on HEAD.
func (tr *testRepo) commit(message string) gitlib.Hash {
	tr.t.Helper()

	var parents []gitlib.Hash

	head, err := tr.native.Head()
	if err == nil {
		parents = append(parents, gitlib.HashFromOid(head.Target()))

		head.Free()
	}

	return tr.commitWithParents(message, parents...)
}

// commitSameTime commits on HEAD with the timestamp of the previous commit.
func (tr *testRepo) commitSameTime(message string) gitlib.Hash {
	tr.t.Helper()

	tr.clock = tr.clock.Add(-time.Minute)

	return tr.commit(message)
}

// commitWithParents stages all files and creates a commit on HEAD with the
// given parents.
func (tr *testRepo) commitWithParents(message string, parentIDs ...gitlib.Hash) gitlib.Hash {
	tr.t.Helper()

	tree := tr.stage()
	defer tree.Free()

	parents := make([]*git2go.Commit, 0, len(parentIDs))

	for _, id := range parentIDs {
		parent, err := tr.native.LookupCommit(id.ToOid())
		require.NoError(tr.t, err)

		parents = append(parents, parent)
	}

	sig := tr.signature()

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// resetHard moves HEAD and the working tree to id.
func (tr *testRepo) resetHard(id gitlib.Hash) {
	tr.t.Helper()

	commit, err := tr.native.LookupCommit(id.ToOid())
	require.NoError(tr.t, err)

	defer commit.Free()

	err = tr.native.ResetToCommit(commit, git2go.ResetHard, &git2go.CheckoutOptions{Strategy: git2go.CheckoutForce})
	require.NoError(tr.t, err)
}

// headBranch returns the short name of the checked-out branch.
func (tr *testRepo) headBranch() string {
	tr.t.Helper()

	head, err := tr.native.Head()
	require.NoError(tr.t, err)

	defer head.Free()

	return head.Shorthand()
}

// head returns the commit HEAD points at.
func (tr *testRepo) head() gitlib.Hash {
	tr.t.Helper()

	head, err := tr.native.Head()
	require.NoError(tr.t, err)

	defer head.Free()

	return gitlib.HashFromOid(head.Target())
}

// setUpstream points the checked-out branch at origin/<branch>, creating the
// remote-tracking ref at target. No network access is involved.
func (tr *testRepo) setUpstream(target gitlib.Hash) {
	tr.t.Helper()

	name := tr.headBranch()

	remote, err := tr.native.Remotes.Create("origin", "https://example.invalid/repo.git")
	require.NoError(tr.t, err)

	remote.Free()

	ref, err := tr.native.References.Create("refs/remotes/origin/"+name, target.ToOid(), true, "test upstream")
	require.NoError(tr.t, err)

	ref.Free()

	branch, err := tr.native.LookupBranch(name, git2go.BranchLocal)
	require.NoError(tr.t, err)

	defer branch.Free()

	require.NoError(tr.t, branch.SetUpstream("origin/"+name))
}

// moveUpstream points the remote-tracking ref created by setUpstream at target.
func (tr *testRepo) moveUpstream(target gitlib.Hash) {
	tr.t.Helper()

	ref, err := tr.native.References.Create("refs/remotes/origin/"+tr.headBranch(), target.ToOid(), true, "test upstream")
	require.NoError(tr.t, err)

	ref.Free()
}
