package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regrada-ai/finetune/internal/baseline"
	"github.com/regrada-ai/finetune/internal/checkpoint"
	"github.com/regrada-ai/finetune/internal/classifier"
	"github.com/regrada-ai/finetune/internal/config"
	"github.com/regrada-ai/finetune/internal/dataset"
	"github.com/regrada-ai/finetune/internal/diff"
	"github.com/regrada-ai/finetune/internal/git"
	"github.com/regrada-ai/finetune/internal/logging"
	"github.com/regrada-ai/finetune/internal/model"
	"github.com/regrada-ai/finetune/internal/policy"
	"github.com/regrada-ai/finetune/internal/report"
	"github.com/regrada-ai/finetune/internal/runner"
	"github.com/regrada-ai/finetune/internal/sink"
	"github.com/regrada-ai/finetune/internal/step"
	"github.com/regrada-ai/finetune/internal/store"
)

// session is the wiring shared by every command that touches the model.
type session struct {
	command    string
	cfg        *config.ProjectConfig
	logger     *zap.Logger
	clf        model.Classifier
	enc        dataset.Encoder
	agg        *sink.EpochAggregator
	ev         *step.Evaluator
	run        *runner.Runner
	configHash string
	startedAt  time.Time
	out        io.Writer
}

func openSession(cmd *cobra.Command, command string) (*session, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, ExitError{Code: exitConfig, Err: err}
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, ExitError{Code: exitConfig, Err: err}
	}
	clf, err := classifier.Resolve(cfg)
	if err != nil {
		return nil, ExitError{Code: exitConfig, Err: err}
	}
	hash, err := baseline.ConfigHash(cfg)
	if err != nil {
		return nil, ExitError{Code: exitGeneric, Err: err}
	}

	agg := sink.NewEpochAggregator()
	ev := step.New(clf, cfg.Training.LearningRate, sink.Tee{agg, sink.NewZapSink(logger)})
	r := runner.New(ev, agg,
		runner.WithLogger(logger),
		runner.WithOnError(cfg.Training.OnError),
	)
	logger = logger.With(zap.String("run_id", r.RunID()), zap.String("command", command))
	logger.Info("session opened",
		zap.String("project", cfg.Project.Name),
		zap.String("model", cfg.Model.Kind),
		zap.String("config_hash", hash[:8]),
	)

	if remote, ok := clf.(*classifier.HTTP); ok {
		if err := checkModelService(cmd.Context(), remote, logger); err != nil {
			return nil, ExitError{Code: exitRun, Err: err}
		}
	}

	return &session{
		command:    command,
		cfg:        cfg,
		logger:     logger,
		clf:        clf,
		enc:        dataset.NewEncoder(cfg.Model.VocabSize, cfg.Data.MaxLen),
		agg:        agg,
		ev:         ev,
		run:        r,
		configHash: hash,
		startedAt:  time.Now(),
		out:        cmd.OutOrStdout(),
	}, nil
}

// checkModelService fails fast when the remote model is down or still loading.
func checkModelService(ctx context.Context, c *classifier.HTTP, logger *zap.Logger) error {
	health, err := c.Health(ctx)
	if err != nil {
		return fmt.Errorf("model service health check: %w", err)
	}
	if !health.ModelLoaded {
		return fmt.Errorf("model service reports status %q with no model loaded", health.Status)
	}
	logger.Info("model service ready", zap.String("model_version", health.ModelVersion))
	return nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

func (s *session) path(p string) string {
	return resolvePath(s.cfg, p)
}

// resolvePath resolves p against the project root.
func resolvePath(cfg *config.ProjectConfig, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.Project.Root, p)
}

func (s *session) examples(p string) ([]dataset.Example, error) {
	examples, err := dataset.Load(s.path(p), s.enc)
	if err != nil {
		return nil, ExitError{Code: exitConfig, Err: err}
	}
	if len(examples) == 0 {
		return nil, ExitError{Code: exitConfig, Err: fmt.Errorf("%s: no records", p)}
	}
	s.logger.Debug("dataset loaded", zap.String("path", p), zap.Int("examples", len(examples)))
	return examples, nil
}

func (s *session) labeledBatches(p string) ([]model.Batch, error) {
	examples, err := s.examples(p)
	if err != nil {
		return nil, err
	}
	batches, err := dataset.Batches(examples, s.cfg.Data.BatchSize)
	if err != nil {
		return nil, ExitError{Code: exitConfig, Err: fmt.Errorf("%s: %w", p, err)}
	}
	return batches, nil
}

// restoreCheckpoint loads saved weights into a model that has local
// parameters. A missing checkpoint is not an error.
func (s *session) restoreCheckpoint() error {
	params := s.clf.Parameters()
	if len(params) == 0 {
		return nil
	}
	p := s.path(s.cfg.Training.Checkpoint)
	if !checkpoint.Exists(p) {
		s.logger.Warn("no checkpoint found; using initial weights", zap.String("path", p))
		return nil
	}
	if err := checkpoint.Load(p, params); err != nil {
		return ExitError{Code: exitConfig, Err: err}
	}
	s.logger.Info("checkpoint restored", zap.String("path", p))
	return nil
}

func (s *session) saveCheckpoint() error {
	params := s.clf.Parameters()
	if len(params) == 0 {
		return nil
	}
	p := s.path(s.cfg.Training.Checkpoint)
	if err := checkpoint.Save(p, params); err != nil {
		return ExitError{Code: exitGeneric, Err: err}
	}
	s.logger.Info("checkpoint saved", zap.String("path", p))
	return nil
}

func (s *session) baselineKey() string {
	return baseline.Key(s.cfg.Model.Kind, s.configHash)
}

func (s *session) baselineStore() baseline.Store {
	if s.cfg.Baseline.Mode == "git" {
		return baseline.NewGitStore(s.cfg.Baseline.GitRef, s.cfg.Baseline.SnapshotDir, git.NewExecClient(s.cfg.Project.Root))
	}
	return baseline.NewLocalStore(s.path(s.cfg.Baseline.SnapshotDir))
}

// compare fills the summary's baseline delta. A missing baseline leaves
// the delta empty.
func (s *session) compare(ctx context.Context, summary *report.RunSummary) error {
	key := s.baselineKey()
	base, err := s.baselineStore().Load(ctx, summary.Stage, key)
	if errors.Is(err, baseline.ErrNotFound) {
		s.logger.Info("no baseline to compare against", zap.String("stage", summary.Stage), zap.String("key", key))
		return nil
	}
	if err != nil {
		return ExitError{Code: exitBaseline, Err: err}
	}
	res := diff.Compare(summary.Metrics, base.Metrics)
	summary.Baseline = key
	summary.Delta = res.MetricDelta
	summary.NewMetrics = res.Added
	summary.DroppedMetrics = res.Removed
	if len(res.Removed) > 0 {
		s.logger.Warn("baseline metrics missing from this run", zap.Strings("metrics", res.Removed))
	}
	return nil
}

// finish applies policies, writes reports, records history and maps
// violations to the exit code.
func (s *session) finish(ctx context.Context, summary *report.RunSummary) error {
	outcomes := policy.Evaluate(s.cfg.Policies, summary.Metrics, summary.Delta)
	summary.Outcomes = outcomes
	summary.Violations = policy.Violations(outcomes)

	for _, format := range s.cfg.Report.Format {
		switch format {
		case "summary":
			report.RenderTerminal(s.out, *summary)
		case "markdown":
			if err := report.WriteMarkdown(*summary, s.path(s.cfg.Report.Markdown.Path)); err != nil {
				return ExitError{Code: exitGeneric, Err: err}
			}
		case "junit":
			if err := report.WriteJUnit(*summary, s.path(s.cfg.Report.JUnit.Path)); err != nil {
				return ExitError{Code: exitGeneric, Err: err}
			}
		}
	}

	s.record(ctx, *summary)

	if policy.ShouldFail(summary.Violations, s.cfg.CI.FailOn) {
		return ExitError{Code: exitPolicy, Err: errors.New("policy violations")}
	}
	return nil
}

// record stores the run in the history database. Failures are logged, not
// returned.
func (s *session) record(ctx context.Context, summary report.RunSummary) {
	if s.cfg.Store.Enabled == nil || !*s.cfg.Store.Enabled {
		return
	}
	rs, err := store.Open(s.path(s.cfg.Store.Path))
	if err != nil {
		s.logger.Warn("run history unavailable", zap.Error(err))
		return
	}
	defer rs.Close()

	run := store.Run{
		ID:         summary.RunID,
		Command:    s.command,
		Stage:      summary.Stage,
		Status:     summary.Status(),
		StartedAt:  s.startedAt,
		ConfigHash: s.configHash,
	}
	if err := rs.RecordRun(ctx, run, metricPoints(summary)); err != nil {
		s.logger.Warn("failed to record run", zap.Error(err))
	}
}

func metricPoints(summary report.RunSummary) []store.MetricPoint {
	var points []store.MetricPoint
	for _, e := range summary.Epochs {
		for _, name := range e.Metrics.Keys() {
			points = append(points, store.MetricPoint{Epoch: e.Epoch, Name: name, Value: e.Metrics[name]})
		}
	}
	for _, name := range summary.MetricNames() {
		points = append(points, store.MetricPoint{Epoch: store.FinalEpoch, Name: name, Value: summary.Metrics[name]})
	}
	return points
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
