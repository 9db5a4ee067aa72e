// SPDX-License-Identifier: LicenseRef-Regrada-Proprietary

package config

type ProjectConfig struct {
	Version  int            `yaml:"version"`
	Project  ProjectMeta    `yaml:"project,omitempty"`
	Model    ModelConfig    `yaml:"model,omitempty"`
	Data     DataConfig     `yaml:"data,omitempty"`
	Training TrainingConfig `yaml:"training,omitempty"`
	Logging  LogConfig      `yaml:"logging,omitempty"`
	Report   ReportConfig   `yaml:"report,omitempty"`
	Baseline BaselineConfig `yaml:"baseline,omitempty"`
	Policies []Policy       `yaml:"policies,omitempty"`
	CI       CIConfig       `yaml:"ci,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
}

type ProjectMeta struct {
	Name string   `yaml:"name,omitempty"`
	Root string   `yaml:"root,omitempty"`
	Tags []string `yaml:"tags,omitempty"`
}

type ModelConfig struct {
	Kind         string          `yaml:"kind,omitempty"` // "linear", "mock" or "http"
	NumClasses   int             `yaml:"num_classes,omitempty"`
	VocabSize    int             `yaml:"vocab_size,omitempty"`
	EmbeddingDim int             `yaml:"embedding_dim,omitempty"`
	Seed         int64           `yaml:"seed,omitempty"`
	HTTP         HTTPModelConfig `yaml:"http,omitempty"`
}

type HTTPModelConfig struct {
	BaseURLEnv string `yaml:"base_url_env,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	TimeoutMS  int    `yaml:"timeout_ms,omitempty"`
}

type DataConfig struct {
	Train     string `yaml:"train,omitempty"`
	Val       string `yaml:"val,omitempty"`
	Test      string `yaml:"test,omitempty"`
	Predict   string `yaml:"predict,omitempty"`
	BatchSize int    `yaml:"batch_size,omitempty"`
	MaxLen    int    `yaml:"max_len,omitempty"`
}

type TrainingConfig struct {
	Epochs       int     `yaml:"epochs,omitempty"`
	LearningRate float64 `yaml:"learning_rate,omitempty"`
	OnError      string  `yaml:"on_error,omitempty"` // "abort" or "skip"
	Checkpoint   string  `yaml:"checkpoint,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "json" or "console"
}

type ReportConfig struct {
	Format   []string       `yaml:"format,omitempty"`
	Markdown MarkdownConfig `yaml:"markdown,omitempty"`
	JUnit    JUnitConfig    `yaml:"junit,omitempty"`
}

type MarkdownConfig struct {
	Path string `yaml:"path,omitempty"`
}

type JUnitConfig struct {
	Path string `yaml:"path,omitempty"`
}

type BaselineConfig struct {
	Mode        string `yaml:"mode,omitempty"` // "local" or "git"
	SnapshotDir string `yaml:"snapshot_dir,omitempty"`
	GitRef      string `yaml:"git_ref,omitempty"`
}

// Policy is a threshold on one reported metric.
type Policy struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description,omitempty"`
	Severity    string   `yaml:"severity,omitempty"`
	Metric      string   `yaml:"metric"`
	Min         *float64 `yaml:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty"`
	MaxDrop     *float64 `yaml:"max_drop,omitempty"`
}

type CIConfig struct {
	FailOn []FailOnSeverity `yaml:"fail_on,omitempty"`
}

type FailOnSeverity struct {
	Severity string `yaml:"severity"`
}

type StoreConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}
