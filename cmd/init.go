package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/regrada-ai/finetune/internal/config"
)

var (
	initForce       bool
	initUseDefaults bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a project with interactive setup",
	Long:  `Initialize a finetune project: write finetune.yml and example train/val/test data.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing project")
	initCmd.Flags().BoolVarP(&initUseDefaults, "yes", "y", false, "Use default values without interactive prompts")
}

func runInit(cmd *cobra.Command, args []string) error {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("finetune init"))
	fmt.Fprintln(out, dimStyle.Render("Setting up a classifier project..."))
	fmt.Fprintln(out)

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return ExitError{Code: exitConfig, Err: fmt.Errorf("%s already exists; use --force to reinitialize", path)}
	}

	cwd, _ := os.Getwd()
	cfg := config.DefaultConfig(filepath.Base(cwd))
	if !initUseDefaults {
		if err := runInteractiveSetup(&cfg); err != nil {
			return ExitError{Code: exitGeneric, Err: err}
		}
	}
	cfg.Policies = examplePolicies()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ExitError{Code: exitGeneric, Err: fmt.Errorf("serialize config: %w", err)}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ExitError{Code: exitGeneric, Err: fmt.Errorf("write config: %w", err)}
	}

	for file, content := range exampleData(cfg) {
		if _, err := os.Stat(file); err == nil && !initForce {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return ExitError{Code: exitGeneric, Err: err}
		}
		if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
			return ExitError{Code: exitGeneric, Err: err}
		}
	}

	fmt.Fprintln(out, successStyle.Render("✓ Project initialized"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Train:", dimStyle.Render("finetune fit"))
	fmt.Fprintln(out, "  2. Snapshot:", dimStyle.Render("finetune baseline"))
	fmt.Fprintln(out, "  3. Gate in CI:", dimStyle.Render("finetune test"))
	fmt.Fprintln(out)
	return nil
}

func runInteractiveSetup(cfg *config.ProjectConfig) error {
	projectName := cfg.Project.Name
	kind := cfg.Model.Kind
	epochs := strconv.Itoa(cfg.Training.Epochs)
	learningRate := strconv.FormatFloat(cfg.Training.LearningRate, 'g', -1, 64)
	var baseURL string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project Name").
				Value(&projectName).
				Placeholder(cfg.Project.Name),

			huh.NewSelect[string]().
				Title("Model").
				Options(
					huh.NewOption("Linear (trains locally)", "linear"),
					huh.NewOption("Remote model service (HTTP)", "http"),
					huh.NewOption("Mock (fixed outputs)", "mock"),
				).
				Value(&kind),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Epochs").
				Value(&epochs).
				Validate(positiveInt),

			huh.NewInput().
				Title("Learning Rate").
				Description("Adam step size, e.g. 2e-5 or 0.01").
				Value(&learningRate).
				Validate(positiveFloat),
		),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		return err
	}

	if kind == "http" {
		urlForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Model Service URL").
					Description("Leave empty to read " + cfg.Model.HTTP.BaseURLEnv + " at run time").
					Value(&baseURL).
					Placeholder("http://localhost:8000"),
			),
		).WithTheme(huh.ThemeCharm())

		if err := urlForm.Run(); err != nil {
			return err
		}
	}

	if projectName != "" {
		cfg.Project.Name = projectName
	}
	cfg.Model.Kind = kind
	cfg.Model.HTTP.BaseURL = baseURL
	cfg.Training.Epochs, _ = strconv.Atoi(epochs)
	cfg.Training.LearningRate, _ = strconv.ParseFloat(learningRate, 64)
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("must be a positive integer")
	}
	return nil
}

func positiveFloat(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func examplePolicies() []config.Policy {
	minAccuracy := 0.6
	maxDrop := 0.05
	maxLoss := 1.0
	return []config.Policy{
		{ID: "test-accuracy-floor", Severity: "error", Metric: "test_accuracy", Min: &minAccuracy},
		{ID: "test-f1-regression", Severity: "error", Metric: "test_f1_score", MaxDrop: &maxDrop},
		{ID: "test-loss-ceiling", Severity: "warn", Metric: "test_loss", Max: &maxLoss},
	}
}

func exampleData(cfg config.ProjectConfig) map[string]string {
	train := `{"text": "great product, works perfectly", "label": 1}
{"text": "absolutely love it", "label": 1}
{"text": "fast shipping and great quality", "label": 1}
{"text": "would buy again", "label": 1}
{"text": "excellent value for the price", "label": 1}
{"text": "broke after one day", "label": 0}
{"text": "terrible quality, do not buy", "label": 0}
{"text": "never arrived and support ignored me", "label": 0}
{"text": "waste of money", "label": 0}
{"text": "cheap plastic, fell apart", "label": 0}
`
	val := `{"text": "love the quality", "label": 1}
{"text": "works great", "label": 1}
{"text": "fell apart quickly", "label": 0}
{"text": "do not waste your money", "label": 0}
`
	test := `{"text": "great value, love it", "label": 1}
{"text": "excellent, works perfectly", "label": 1}
{"text": "terrible, broke immediately", "label": 0}
{"text": "support ignored me, waste", "label": 0}
`
	return map[string]string{
		resolvePath(&cfg, cfg.Data.Train): train,
		resolvePath(&cfg, cfg.Data.Val):   val,
		resolvePath(&cfg, cfg.Data.Test):  test,
	}
}
