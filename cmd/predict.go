package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regrada-ai/finetune/internal/dataset"
	"github.com/regrada-ai/finetune/internal/runner"
)

var (
	predictTexts []string
	predictJSON  bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict classes for texts or a JSONL file",
	Long: `Predict the class of each input with the current checkpoint.

Inputs come from --text flags or, when none are given, from data.predict.

Examples:
  finetune predict --text "great product" --text "never again"
  finetune predict --json`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringArrayVarP(&predictTexts, "text", "t", nil, "Text to classify (repeatable)")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print predictions as JSON lines")
}

type prediction struct {
	Index int    `json:"index"`
	Text  string `json:"text,omitempty"`
	Class *int   `json:"class"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(cmd, "predict")
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.restoreCheckpoint(); err != nil {
		return err
	}

	var examples []dataset.Example
	switch {
	case len(predictTexts) > 0:
		for _, text := range predictTexts {
			ids, mask := s.enc.Encode(text)
			examples = append(examples, dataset.Example{Text: text, InputIDs: ids, AttentionMask: mask})
		}
	case s.cfg.Data.Predict != "":
		if examples, err = s.examples(s.cfg.Data.Predict); err != nil {
			return err
		}
	default:
		return ExitError{Code: exitConfig, Err: errors.New("nothing to predict: pass --text or set data.predict")}
	}

	// One example per batch so every input gets its own prediction.
	batches, err := dataset.PredictBatches(examples, 1)
	if err != nil {
		return ExitError{Code: exitConfig, Err: err}
	}
	classes, err := s.run.Predict(ctx, batches)
	if err != nil {
		return ExitError{Code: exitRun, Err: err}
	}

	enc := json.NewEncoder(s.out)
	for i, class := range classes {
		p := prediction{Index: i, Text: examples[i].Text}
		if class != runner.SkippedPrediction {
			c := class
			p.Class = &c
		}
		if predictJSON {
			if err := enc.Encode(p); err != nil {
				return ExitError{Code: exitGeneric, Err: err}
			}
			continue
		}
		label := "skipped"
		if p.Class != nil {
			label = fmt.Sprintf("%d", *p.Class)
		}
		fmt.Fprintf(s.out, "%d\t%s\t%s\n", i, label, examples[i].Text)
	}
	s.logger.Info("predict complete", zap.Int("inputs", len(examples)))
	return nil
}
