package baseline

import (
	"fmt"

	"github.com/regrada-ai/finetune/internal/config"
	"github.com/regrada-ai/finetune/internal/util"
)

// Key names a baseline by model kind and the short config hash.
func Key(kind, configHash string) string {
	hash := configHash
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return fmt.Sprintf("%s-%s", util.Slugify(kind), hash)
}

// ConfigHash fingerprints the settings that change what a run measures:
// the model, the data and the training schedule. Reporting, logging and
// policy settings are left out so tightening a threshold keeps the key.
func ConfigHash(cfg *config.ProjectConfig) (string, error) {
	payload := map[string]any{
		"model": map[string]any{
			"kind":          cfg.Model.Kind,
			"num_classes":   cfg.Model.NumClasses,
			"vocab_size":    cfg.Model.VocabSize,
			"embedding_dim": cfg.Model.EmbeddingDim,
			"seed":          cfg.Model.Seed,
		},
		"data": map[string]any{
			"train":      cfg.Data.Train,
			"val":        cfg.Data.Val,
			"test":       cfg.Data.Test,
			"batch_size": cfg.Data.BatchSize,
			"max_len":    cfg.Data.MaxLen,
		},
		"training": map[string]any{
			"epochs":        cfg.Training.Epochs,
			"learning_rate": cfg.Training.LearningRate,
		},
	}
	return util.HashJSON(payload)
}
