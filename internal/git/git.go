package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client reads files as they exist at a git ref without touching the
// working tree.
type Client interface {
	ShowFile(ctx context.Context, ref, path string) ([]byte, error)
}

type ExecClient struct {
	dir string
}

// NewExecClient runs git in dir; empty means the current directory.
func NewExecClient(dir string) *ExecClient {
	return &ExecClient{dir: dir}
}

func (c *ExecClient) ShowFile(ctx context.Context, ref, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "show", fmt.Sprintf("%s:%s", ref, path))
	cmd.Dir = c.dir
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git show %s:%s: %w (%s)", ref, path, err, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}
