package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/regrada-ai/finetune/internal/git"
	"github.com/regrada-ai/finetune/internal/util"
)

var ErrNotFound = errors.New("baseline not found")

// Baseline is the accepted metric snapshot for one stage of one model
// configuration.
type Baseline struct {
	Key        string             `json:"key"`
	Stage      string             `json:"stage"`
	ConfigHash string             `json:"config_hash"`
	RunID      string             `json:"run_id"`
	CreatedAt  time.Time          `json:"created_at"`
	Metrics    map[string]float64 `json:"metrics"`
}

type Store interface {
	Load(ctx context.Context, stage, key string) (Baseline, error)
	Save(ctx context.Context, stage, key string, b Baseline) error
}

func relPath(stage, key string) string {
	return filepath.Join(stage, key+".json")
}

func decode(data []byte) (Baseline, error) {
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return Baseline{}, fmt.Errorf("parse baseline: %w", err)
	}
	return b, nil
}

// LocalStore keeps baselines under baseDir/<stage>/<key>.json.
type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) *LocalStore {
	return &LocalStore{baseDir: baseDir}
}

func (s *LocalStore) Load(_ context.Context, stage, key string) (Baseline, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, relPath(stage, key)))
	if errors.Is(err, fs.ErrNotExist) {
		return Baseline{}, fmt.Errorf("%w: %s/%s", ErrNotFound, stage, key)
	}
	if err != nil {
		return Baseline{}, err
	}
	return decode(data)
}

func (s *LocalStore) Save(_ context.Context, stage, key string, b Baseline) error {
	path := filepath.Join(s.baseDir, relPath(stage, key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := util.CanonicalJSON(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// GitStore reads baselines committed at ref, so CI can compare against the
// main branch. It cannot save.
type GitStore struct {
	ref     string
	baseDir string
	client  git.Client
}

func NewGitStore(ref, baseDir string, client git.Client) *GitStore {
	return &GitStore{ref: ref, baseDir: baseDir, client: client}
}

func (s *GitStore) Load(ctx context.Context, stage, key string) (Baseline, error) {
	path := filepath.ToSlash(filepath.Join(s.baseDir, relPath(stage, key)))
	data, err := s.client.ShowFile(ctx, s.ref, path)
	if err != nil {
		return Baseline{}, fmt.Errorf("%w: %s at %s: %v", ErrNotFound, path, s.ref, err)
	}
	return decode(data)
}

func (s *GitStore) Save(context.Context, string, string, Baseline) error {
	return errors.New("git baseline store is read-only")
}
