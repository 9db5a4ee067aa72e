package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/regrada-ai/finetune/internal/model"
)

var (
	ErrEmptyRecord  = errors.New("record has neither input_ids nor text")
	ErrMissingLabel = errors.New("record has no label")
	ErrMaskValue    = errors.New("attention_mask values must be 0 or 1")
)

// Record is one JSONL line as stored on disk.
type Record struct {
	Text          string `json:"text,omitempty"`
	InputIDs      []int  `json:"input_ids,omitempty"`
	AttentionMask []int  `json:"attention_mask,omitempty"`
	Label         *int   `json:"label,omitempty"`
}

// Example is an encoded record. Label is nil for unlabeled data.
type Example struct {
	Text          string
	InputIDs      []int
	AttentionMask []int
	Label         *int
}

// Load reads a JSONL file, one record per line. Blank lines are skipped.
// Text records are encoded with enc; pre-tokenized records are fitted to
// enc.MaxLen and get an all-ones mask when none is given.
func Load(path string, enc Encoder) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var examples []Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: parse record: %w", path, line, err)
		}
		ex, err := encodeRecord(rec, enc)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return examples, nil
}

func encodeRecord(rec Record, enc Encoder) (Example, error) {
	ex := Example{Text: rec.Text, Label: rec.Label}
	switch {
	case len(rec.InputIDs) > 0:
		mask := rec.AttentionMask
		if mask == nil {
			mask = make([]int, len(rec.InputIDs))
			for i := range mask {
				mask[i] = 1
			}
		}
		if len(mask) != len(rec.InputIDs) {
			return Example{}, fmt.Errorf("%w: %d input_ids, %d attention_mask", model.ErrShapeMismatch, len(rec.InputIDs), len(mask))
		}
		for i, m := range mask {
			if m != 0 && m != 1 {
				return Example{}, fmt.Errorf("%w: position %d is %d", ErrMaskValue, i, m)
			}
		}
		for _, id := range rec.InputIDs {
			if id < 0 {
				return Example{}, fmt.Errorf("negative token id %d", id)
			}
		}
		ex.InputIDs, ex.AttentionMask = enc.Fit(rec.InputIDs, mask)
	case rec.Text != "":
		ex.InputIDs, ex.AttentionMask = enc.Encode(rec.Text)
	default:
		return Example{}, ErrEmptyRecord
	}
	if rec.Label != nil && *rec.Label < 0 {
		return Example{}, fmt.Errorf("negative label %d", *rec.Label)
	}
	return ex, nil
}

// Batches chunks labeled examples in order. The last batch may be short.
func Batches(examples []Example, size int) ([]model.Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	var batches []model.Batch
	for start := 0; start < len(examples); start += size {
		end := min(start+size, len(examples))
		b := model.Batch{
			InputIDs:      make([][]int, 0, end-start),
			AttentionMask: make([][]int, 0, end-start),
			Labels:        make([]int, 0, end-start),
		}
		for i := start; i < end; i++ {
			ex := examples[i]
			if ex.Label == nil {
				return nil, fmt.Errorf("example %d: %w", i, ErrMissingLabel)
			}
			b.InputIDs = append(b.InputIDs, ex.InputIDs)
			b.AttentionMask = append(b.AttentionMask, ex.AttentionMask)
			b.Labels = append(b.Labels, *ex.Label)
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// PredictBatches chunks examples in order, ignoring any labels.
func PredictBatches(examples []Example, size int) ([]model.PredictBatch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	var batches []model.PredictBatch
	for start := 0; start < len(examples); start += size {
		end := min(start+size, len(examples))
		b := model.PredictBatch{
			InputIDs:      make([][]int, 0, end-start),
			AttentionMask: make([][]int, 0, end-start),
		}
		for _, ex := range examples[start:end] {
			b.InputIDs = append(b.InputIDs, ex.InputIDs)
			b.AttentionMask = append(b.AttentionMask, ex.AttentionMask)
		}
		batches = append(batches, b)
	}
	return batches, nil
}
