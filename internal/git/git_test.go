package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestExecClientShowFile(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "snap"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snap", "a.json"), []byte(`{"v":1}`), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "snapshot")

	// The working tree changes after the commit; ShowFile must read the ref.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snap", "a.json"), []byte(`{"v":2}`), 0o644))

	client := NewExecClient(dir)
	data, err := client.ShowFile(context.Background(), "HEAD", "snap/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	_, err = client.ShowFile(context.Background(), "HEAD", "snap/missing.json")
	assert.Error(t, err)
}
