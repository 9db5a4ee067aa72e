// Package checkpoint persists classifier parameters as canonical JSON keyed
// by parameter name.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/regrada-ai/finetune/internal/model"
	"github.com/regrada-ai/finetune/internal/util"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter in checkpoint")
	ErrSizeMismatch     = errors.New("parameter size mismatch")
)

type tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Save writes every parameter's data. Gradients are not stored.
func Save(path string, params []*model.Parameter) error {
	out := make(map[string]tensor, len(params))
	for _, p := range params {
		if _, dup := out[p.Name]; dup {
			return fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		out[p.Name] = tensor{Shape: p.Shape, Data: p.Data}
	}
	data, err := util.CanonicalJSON(out)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load copies stored values into params, matching by name. Parameters
// absent from the file keep their current values.
func Load(path string, params []*model.Parameter) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read checkpoint: %w", err)
	}
	var stored map[string]tensor
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}

	byName := make(map[string]*model.Parameter, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}
	for name, t := range stored {
		p, ok := byName[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
		}
		if len(t.Data) != len(p.Data) || !slices.Equal(t.Shape, p.Shape) {
			return fmt.Errorf("%w: %q has shape %v in checkpoint, %v in model", ErrSizeMismatch, name, t.Shape, p.Shape)
		}
	}
	for name, t := range stored {
		copy(byName[name].Data, t.Data)
	}
	return nil
}

// Exists reports whether a checkpoint file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
