package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	a := map[string]any{"b": 1, "a": map[string]any{"z": true, "y": []int{2, 1}}}
	out, err := CompactCanonicalJSON(a)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":[2,1],"z":true},"b":1}`, string(out))

	pretty, err := CanonicalJSON(map[string]float64{"x": 0.5})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"x\": 0.5\n}", string(pretty))
}

func TestCanonicalJSONKeepsHTML(t *testing.T) {
	out, err := CompactCanonicalJSON(map[string]string{"k": "<a&b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"<a&b>"}`, string(out))
}

func TestHashJSONIgnoresFieldOrder(t *testing.T) {
	type ab struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	h1, err := HashJSON(ab{A: 1, B: 2})
	require.NoError(t, err)
	h2, err := HashJSON(map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Sentiment Fine-Tune": "sentiment-fine-tune",
		"  --weird__name!! ":  "weird-name",
		"":                    "run",
		"***":                 "run",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}
