package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// applyDefaults sets default values for unspecified configuration fields
func applyDefaults(cfg *ProjectConfig, configPath string) error {
	applyProjectDefaults(cfg, configPath)
	applyModelDefaults(cfg)
	applyDataDefaults(cfg)
	applyTrainingDefaults(cfg)
	applyLoggingDefaults(cfg)
	applyReportDefaults(cfg)
	applyBaselineDefaults(cfg)
	if err := applyCIDefaults(cfg); err != nil {
		return err
	}
	applyStoreDefaults(cfg)
	return nil
}

func applyProjectDefaults(cfg *ProjectConfig, configPath string) {
	if cfg.Project.Root == "" {
		cfg.Project.Root = "."
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = deriveProjectName(configPath)
	}
}

func deriveProjectName(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		if cwd, err := os.Getwd(); err == nil {
			dir = cwd
		}
	}
	return filepath.Base(dir)
}

func applyModelDefaults(cfg *ProjectConfig) {
	setDefaultString(&cfg.Model.Kind, "linear")
	setDefaultInt(&cfg.Model.NumClasses, 2)
	setDefaultInt(&cfg.Model.VocabSize, 30522)
	setDefaultInt(&cfg.Model.EmbeddingDim, 16)
	setDefaultString(&cfg.Model.HTTP.BaseURLEnv, "FINETUNE_MODEL_URL")
	setDefaultInt(&cfg.Model.HTTP.TimeoutMS, 30000)
}

func applyDataDefaults(cfg *ProjectConfig) {
	setDefaultString(&cfg.Data.Train, "data/train.jsonl")
	setDefaultString(&cfg.Data.Val, "data/val.jsonl")
	setDefaultString(&cfg.Data.Test, "data/test.jsonl")
	setDefaultInt(&cfg.Data.BatchSize, 16)
	setDefaultInt(&cfg.Data.MaxLen, 128)
}

func applyTrainingDefaults(cfg *ProjectConfig) {
	setDefaultInt(&cfg.Training.Epochs, 3)
	setDefaultFloat64(&cfg.Training.LearningRate, 2e-5)
	setDefaultString(&cfg.Training.OnError, "abort")
	setDefaultString(&cfg.Training.Checkpoint, ".finetune/checkpoint.json")
}

func applyLoggingDefaults(cfg *ProjectConfig) {
	setDefaultString(&cfg.Logging.Level, "info")
	setDefaultString(&cfg.Logging.Format, "console")
}

func applyReportDefaults(cfg *ProjectConfig) {
	setDefaultSlice(&cfg.Report.Format, []string{"summary", "markdown"})
	setDefaultString(&cfg.Report.Markdown.Path, ".finetune/report.md")
	setDefaultString(&cfg.Report.JUnit.Path, ".finetune/junit.xml")
}

func applyBaselineDefaults(cfg *ProjectConfig) {
	setDefaultString(&cfg.Baseline.Mode, "local")
	setDefaultString(&cfg.Baseline.SnapshotDir, ".finetune/baselines")
	if cfg.Baseline.Mode == "git" {
		setDefaultString(&cfg.Baseline.GitRef, "origin/main")
	}
}

func applyCIDefaults(cfg *ProjectConfig) error {
	setDefaultSlice(&cfg.CI.FailOn, []FailOnSeverity{{Severity: "error"}})

	for i, entry := range cfg.CI.FailOn {
		if entry.Severity != "error" && entry.Severity != "warn" {
			return fmt.Errorf("ci.fail_on[%d].severity must be error or warn", i)
		}
	}
	return nil
}

func applyStoreDefaults(cfg *ProjectConfig) {
	setDefaultBoolPtr(&cfg.Store.Enabled, true)
	setDefaultString(&cfg.Store.Path, ".finetune/runs.db")
}

// Helper functions to reduce repetition

func setDefaultString(field *string, defaultValue string) {
	if *field == "" {
		*field = defaultValue
	}
}

func setDefaultInt(field *int, defaultValue int) {
	if *field == 0 {
		*field = defaultValue
	}
}

func setDefaultFloat64(field *float64, defaultValue float64) {
	if *field == 0 {
		*field = defaultValue
	}
}

func setDefaultBoolPtr(field **bool, defaultValue bool) {
	if *field == nil {
		v := defaultValue
		*field = &v
	}
}

func setDefaultSlice[T any](field *[]T, defaultValue []T) {
	if len(*field) == 0 {
		*field = defaultValue
	}
}
