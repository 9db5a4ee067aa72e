package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Process exit codes.
const (
	exitGeneric  = 1
	exitPolicy   = 2
	exitConfig   = 3
	exitBaseline = 4
	exitRun      = 5
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finetune",
	Short: "finetune - train and gate sequence classifiers",
	Long: `finetune trains a sequence classifier, evaluates it on held-out data and
gates the result against baselines and policies in CI.

Key commands:
  finetune init        Initialize a project (finetune.yml + example data)
  finetune fit         Train, validate each epoch, save a checkpoint
  finetune test        Evaluate the test set, diff against baselines, apply policies
  finetune predict     Predict classes for texts or a JSONL file
  finetune baseline    Snapshot current metrics as the baseline
  finetune runs        Show run history`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: finetune.yml/finetune.yaml)")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitGeneric
		var exitErr ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
			err = exitErr.Err
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return "exit"
	}
	return e.Err.Error()
}

func (e ExitError) Unwrap() error {
	return e.Err
}
