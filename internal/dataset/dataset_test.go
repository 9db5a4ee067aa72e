package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regrada-ai/finetune/internal/model"
)

func writeJSONL(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestEncoder(t *testing.T) {
	enc := NewEncoder(100, 6)

	t.Run("pads and masks", func(t *testing.T) {
		ids, mask := enc.Encode("Great movie!")
		require.Len(t, ids, 6)
		assert.Equal(t, []int{1, 1, 0, 0, 0, 0}, mask)
		assert.Equal(t, PadID, ids[2])
		for _, id := range ids[:2] {
			assert.GreaterOrEqual(t, id, 1)
			assert.Less(t, id, 100)
		}
	})

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		a, _ := enc.Encode("great, MOVIE")
		b, _ := enc.Encode("Great movie!")
		assert.Equal(t, a, b)
	})

	t.Run("truncates", func(t *testing.T) {
		ids, mask := enc.Encode("a b c d e f g h")
		assert.Len(t, ids, 6)
		assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, mask)
	})

	t.Run("no max len keeps length", func(t *testing.T) {
		ids, mask := NewEncoder(100, 0).Encode("one two three")
		assert.Len(t, ids, 3)
		assert.Len(t, mask, 3)
	})
}

func TestLoad(t *testing.T) {
	enc := NewEncoder(50, 4)

	t.Run("text and token records", func(t *testing.T) {
		path := writeJSONL(t, `{"text":"loved it","label":1}

{"input_ids":[5,6],"attention_mask":[1,1],"label":0}
{"input_ids":[7]}
`)
		examples, err := Load(path, enc)
		require.NoError(t, err)
		require.Len(t, examples, 3)

		assert.Equal(t, "loved it", examples[0].Text)
		require.NotNil(t, examples[0].Label)
		assert.Equal(t, 1, *examples[0].Label)

		assert.Equal(t, []int{5, 6, 0, 0}, examples[1].InputIDs)
		assert.Equal(t, []int{1, 1, 0, 0}, examples[1].AttentionMask)

		assert.Equal(t, []int{1, 0, 0, 0}, examples[2].AttentionMask)
		assert.Nil(t, examples[2].Label)
	})

	t.Run("mask length mismatch", func(t *testing.T) {
		path := writeJSONL(t, `{"input_ids":[1,2],"attention_mask":[1],"label":0}`)
		_, err := Load(path, enc)
		assert.ErrorIs(t, err, model.ErrShapeMismatch)
	})

	t.Run("mask values other than 0 and 1", func(t *testing.T) {
		for _, mask := range []string{"[1,2]", "[1,-1]"} {
			path := writeJSONL(t, `{"input_ids":[1,2],"attention_mask":`+mask+`,"label":0}`)
			_, err := Load(path, enc)
			assert.ErrorIs(t, err, ErrMaskValue, mask)
		}
	})

	t.Run("empty record", func(t *testing.T) {
		path := writeJSONL(t, `{"label":0}`)
		_, err := Load(path, enc)
		assert.ErrorIs(t, err, ErrEmptyRecord)
	})

	t.Run("bad json reports line", func(t *testing.T) {
		path := writeJSONL(t, "{\"text\":\"ok\",\"label\":0}\n{nope\n")
		_, err := Load(path, enc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ":2:")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"), enc)
		assert.Error(t, err)
	})
}

func TestBatches(t *testing.T) {
	label := func(v int) *int { return &v }
	examples := []Example{
		{InputIDs: []int{1}, AttentionMask: []int{1}, Label: label(0)},
		{InputIDs: []int{2}, AttentionMask: []int{1}, Label: label(1)},
		{InputIDs: []int{3}, AttentionMask: []int{1}, Label: label(1)},
	}

	batches, err := Batches(examples, 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{0, 1}, batches[0].Labels)
	assert.Equal(t, [][]int{{3}}, batches[1].InputIDs)
	for _, b := range batches {
		assert.NoError(t, b.Validate())
	}

	preds, err := PredictBatches(examples, 2)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, [][]int{{1}, {2}}, preds[0].InputIDs)

	_, err = Batches(append(examples, Example{InputIDs: []int{4}, AttentionMask: []int{1}}), 2)
	assert.ErrorIs(t, err, ErrMissingLabel)

	_, err = Batches(examples, 0)
	assert.Error(t, err)
}
