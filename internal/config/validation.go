package config

import (
	"errors"
	"fmt"
	"strings"
)

// validateConfig validates the configuration
func validateConfig(cfg *ProjectConfig) error {
	validators := []func(*ProjectConfig) error{
		validateVersion,
		validateModel,
		validateData,
		validateTraining,
		validateLogging,
		validateReport,
		validateBaseline,
		validatePolicies,
	}

	for _, validator := range validators {
		if err := validator(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *ProjectConfig) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version %d", cfg.Version)
	}
	return nil
}

func validateModel(cfg *ProjectConfig) error {
	if !isValidModelKind(cfg.Model.Kind) {
		return fmt.Errorf("model.kind must be one of linear, mock, http")
	}
	if cfg.Model.NumClasses < 2 {
		return fmt.Errorf("model.num_classes must be >= 2 (got %d)", cfg.Model.NumClasses)
	}
	if cfg.Model.VocabSize <= 0 {
		return fmt.Errorf("model.vocab_size must be > 0 (got %d)", cfg.Model.VocabSize)
	}
	if cfg.Model.EmbeddingDim <= 0 {
		return fmt.Errorf("model.embedding_dim must be > 0 (got %d)", cfg.Model.EmbeddingDim)
	}
	if cfg.Model.Kind == "http" && cfg.Model.HTTP.BaseURL == "" && cfg.Model.HTTP.BaseURLEnv == "" {
		return errors.New("model.http: either base_url or base_url_env must be provided")
	}
	return nil
}

func validateData(cfg *ProjectConfig) error {
	if cfg.Data.BatchSize <= 0 {
		return fmt.Errorf("data.batch_size must be > 0 (got %d)", cfg.Data.BatchSize)
	}
	if cfg.Data.MaxLen <= 0 {
		return fmt.Errorf("data.max_len must be > 0 (got %d)", cfg.Data.MaxLen)
	}
	return nil
}

func validateTraining(cfg *ProjectConfig) error {
	if cfg.Training.Epochs <= 0 {
		return fmt.Errorf("training.epochs must be > 0 (got %d)", cfg.Training.Epochs)
	}
	if cfg.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learning_rate must be > 0 (got %g)", cfg.Training.LearningRate)
	}
	if cfg.Training.OnError != "abort" && cfg.Training.OnError != "skip" {
		return fmt.Errorf("training.on_error must be abort or skip")
	}
	return nil
}

func validateLogging(cfg *ProjectConfig) error {
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console")
	}
	return nil
}

func validateReport(cfg *ProjectConfig) error {
	for i, format := range cfg.Report.Format {
		switch format {
		case "summary", "markdown", "junit":
		default:
			return fmt.Errorf("report.format[%d] must be summary, markdown or junit", i)
		}
	}
	return nil
}

func validateBaseline(cfg *ProjectConfig) error {
	switch cfg.Baseline.Mode {
	case "local":
	case "git":
		if cfg.Baseline.GitRef == "" {
			return errors.New("baseline.git_ref is required when baseline.mode is git")
		}
	default:
		return fmt.Errorf("baseline.mode must be local or git")
	}
	return nil
}

func validatePolicies(cfg *ProjectConfig) error {
	seen := make(map[string]bool)
	for i := range cfg.Policies {
		policy := &cfg.Policies[i]

		if policy.ID == "" {
			return fmt.Errorf("policies[%d].id is required", i)
		}
		if seen[policy.ID] {
			return fmt.Errorf("policies[%d].id %q is duplicated", i, policy.ID)
		}
		seen[policy.ID] = true

		if err := validatePolicySeverity(policy, i); err != nil {
			return err
		}
		if err := validatePolicyCheck(*policy); err != nil {
			return fmt.Errorf("policies[%d]: %w", i, err)
		}
	}
	return nil
}

func validatePolicySeverity(policy *Policy, index int) error {
	if policy.Severity == "" {
		policy.Severity = "error"
		return nil
	}

	if policy.Severity != "error" && policy.Severity != "warn" {
		return fmt.Errorf("policies[%d].severity must be error or warn", index)
	}
	return nil
}

func validatePolicyCheck(policy Policy) error {
	if policy.Metric == "" {
		return errors.New("metric is required")
	}
	if !isStageMetric(policy.Metric) {
		return fmt.Errorf("unsupported metric %q", policy.Metric)
	}
	if policy.Min == nil && policy.Max == nil && policy.MaxDrop == nil {
		return errors.New("one of min, max or max_drop is required")
	}
	return nil
}

func isValidModelKind(value string) bool {
	validKinds := map[string]bool{
		"linear": true,
		"mock":   true,
		"http":   true,
	}
	return validKinds[value]
}

// isStageMetric accepts names such as val_f1_score or test_loss.
func isStageMetric(name string) bool {
	stage, metric, ok := strings.Cut(name, "_")
	if !ok {
		return false
	}
	switch stage {
	case "train":
		return metric == "loss"
	case "val", "test":
		switch metric {
		case "loss", "accuracy", "f1_score", "precision", "recall":
			return true
		}
	}
	return false
}
