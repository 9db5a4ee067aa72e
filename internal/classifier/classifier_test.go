package classifier

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regrada-ai/finetune/internal/config"
	"github.com/regrada-ai/finetune/internal/model"
	"github.com/regrada-ai/finetune/internal/optim"
)

func TestResolve(t *testing.T) {
	t.Run("linear", func(t *testing.T) {
		cfg := config.DefaultConfig("demo")
		cfg.Model.Kind = "linear"
		cfg.Model.VocabSize = 32
		cfg.Model.EmbeddingDim = 4
		m, err := Resolve(&cfg)
		require.NoError(t, err)
		assert.IsType(t, &Linear{}, m)
		assert.Len(t, m.Parameters(), 3)
	})

	t.Run("mock", func(t *testing.T) {
		cfg := config.DefaultConfig("demo")
		cfg.Model.Kind = "mock"
		m, err := Resolve(&cfg)
		require.NoError(t, err)
		assert.IsType(t, &Mock{}, m)
	})

	t.Run("http from env", func(t *testing.T) {
		t.Setenv("FINETUNE_TEST_URL", "http://model.local/")
		cfg := config.DefaultConfig("demo")
		cfg.Model.Kind = "http"
		cfg.Model.HTTP.BaseURLEnv = "FINETUNE_TEST_URL"
		cfg.Model.HTTP.BaseURL = "http://ignored"
		m, err := Resolve(&cfg)
		require.NoError(t, err)
		require.IsType(t, &HTTP{}, m)
		assert.Equal(t, "http://model.local", m.(*HTTP).baseURL)
	})

	t.Run("http without endpoint", func(t *testing.T) {
		cfg := config.DefaultConfig("demo")
		cfg.Model.Kind = "http"
		cfg.Model.HTTP.BaseURLEnv = "FINETUNE_UNSET_URL_FOR_TEST"
		cfg.Model.HTTP.BaseURL = ""
		_, err := Resolve(&cfg)
		assert.ErrorContains(t, err, "missing model endpoint")
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfg := config.DefaultConfig("demo")
		cfg.Model.Kind = "bert"
		_, err := Resolve(&cfg)
		assert.ErrorContains(t, err, "unknown model kind")
	})
}

func TestMockForward(t *testing.T) {
	m := NewMock(2)
	out, err := m.Forward(context.Background(),
		[][]int{{3, 1}, {4}, {}},
		[][]int{{1, 1}, {1}, {}},
		[]int{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 0}, {1, 0}}, out.Logits)
	require.NotNil(t, out.Loss)

	want := -math.Log(math.E / (math.E + 1))
	assert.InDelta(t, want, *out.Loss, 1e-9)

	out, err = m.Forward(context.Background(), [][]int{{1}}, [][]int{{1}}, nil)
	require.NoError(t, err)
	assert.Nil(t, out.Loss)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Forward(ctx, [][]int{{1}}, [][]int{{1}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanCrossEntropy(t *testing.T) {
	loss, err := meanCrossEntropy([][]float64{{0, 0}, {0, 0}}, []int{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, loss, 1e-12)

	_, err = meanCrossEntropy([][]float64{{0, 0}}, []int{2})
	assert.ErrorIs(t, err, ErrLabelRange)

	_, err = meanCrossEntropy([][]float64{{0, 0}}, []int{0, 1})
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestLinearForward(t *testing.T) {
	ids := [][]int{{1, 2, 0}, {3, 0, 0}}
	mask := [][]int{{1, 1, 0}, {1, 0, 0}}

	t.Run("deterministic for a seed", func(t *testing.T) {
		a := NewLinear(8, 4, 2, 7)
		b := NewLinear(8, 4, 2, 7)
		outA, err := a.Forward(context.Background(), ids, mask, nil)
		require.NoError(t, err)
		outB, err := b.Forward(context.Background(), ids, mask, nil)
		require.NoError(t, err)
		assert.Equal(t, outA.Logits, outB.Logits)
		assert.Nil(t, outA.Loss)
	})

	t.Run("padding does not change logits", func(t *testing.T) {
		l := NewLinear(8, 4, 2, 1)
		short, err := l.Forward(context.Background(), [][]int{{1, 2}}, [][]int{{1, 1}}, nil)
		require.NoError(t, err)
		padded, err := l.Forward(context.Background(), [][]int{{1, 2, 5, 6}}, [][]int{{1, 1, 0, 0}}, nil)
		require.NoError(t, err)
		assert.InDeltaSlice(t, short.Logits[0], padded.Logits[0], 1e-12)
	})

	t.Run("rejects negative ids", func(t *testing.T) {
		l := NewLinear(8, 4, 2, 1)
		_, err := l.Forward(context.Background(), [][]int{{-1}}, [][]int{{1}}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects label count mismatch", func(t *testing.T) {
		l := NewLinear(8, 4, 2, 1)
		_, err := l.Forward(context.Background(), ids, mask, []int{0})
		assert.ErrorIs(t, err, model.ErrShapeMismatch)
	})

	t.Run("eval mode computes loss without gradients", func(t *testing.T) {
		l := NewLinear(8, 4, 2, 1)
		l.SetTraining(false)
		out, err := l.Forward(context.Background(), ids, mask, []int{1, 0})
		require.NoError(t, err)
		require.NotNil(t, out.Loss)
		for _, p := range l.Parameters() {
			for _, g := range p.Grad {
				require.Zero(t, g, p.Name)
			}
		}

		l.SetTraining(true)
		_, err = l.Forward(context.Background(), ids, mask, []int{1, 0})
		require.NoError(t, err)
		assert.NotZero(t, l.bias.Grad[0])
	})
}

func TestLinearGradientMatchesFiniteDifference(t *testing.T) {
	ids := [][]int{{1, 2, 0}, {3, 4, 5}}
	mask := [][]int{{1, 1, 0}, {1, 1, 1}}
	labels := []int{1, 0}

	l := NewLinear(8, 3, 2, 42)
	_, err := l.Forward(context.Background(), ids, mask, labels)
	require.NoError(t, err)

	lossAt := func() float64 {
		out, err := l.Forward(context.Background(), ids, mask, labels)
		require.NoError(t, err)
		return *out.Loss
	}

	analytic := make(map[string][]float64)
	for _, p := range l.Parameters() {
		analytic[p.Name] = append([]float64(nil), p.Grad...)
	}

	const eps = 1e-6
	for _, p := range l.Parameters() {
		for _, idx := range []int{0, len(p.Data) / 2, len(p.Data) - 1} {
			orig := p.Data[idx]
			p.Data[idx] = orig + eps
			up := lossAt()
			p.Data[idx] = orig - eps
			down := lossAt()
			p.Data[idx] = orig
			numeric := (up - down) / (2 * eps)
			assert.InDelta(t, numeric, analytic[p.Name][idx], 1e-5, "param %s[%d]", p.Name, idx)
		}
	}
}

func TestLinearLearnsWithAdam(t *testing.T) {
	l := NewLinear(16, 4, 2, 3)
	opt := optim.NewAdam(l.Parameters(), optim.DefaultAdamConfig(0.05))

	ids := [][]int{{1, 2}, {3, 4}, {9, 10}, {11, 12}}
	mask := [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	labels := []int{0, 0, 1, 1}

	var first, last float64
	for i := 0; i < 100; i++ {
		opt.ZeroGrad()
		out, err := l.Forward(context.Background(), ids, mask, labels)
		require.NoError(t, err)
		if i == 0 {
			first = *out.Loss
		}
		last = *out.Loss
		opt.Step()
	}
	assert.Less(t, last, first/2)
}

func TestHTTPForward(t *testing.T) {
	t.Run("successful forward", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/forward", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req ForwardRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, [][]int{{1, 2}}, req.InputIDs)
			assert.Equal(t, []int{1}, req.Labels)

			loss := 0.25
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(ForwardResponse{
				Loss:   &loss,
				Logits: [][]float64{{0.1, 2.0}},
			}))
		}))
		defer server.Close()

		c := NewHTTP(server.URL, 2, 5*time.Second)
		out, err := c.Forward(context.Background(), [][]int{{1, 2}}, [][]int{{1, 1}}, []int{1})
		require.NoError(t, err)
		require.NotNil(t, out.Loss)
		assert.Equal(t, 0.25, *out.Loss)
		assert.Equal(t, [][]float64{{0.1, 2.0}}, out.Logits)
		assert.Nil(t, c.Parameters())
		assert.Equal(t, 2, c.NumClasses())
	})

	t.Run("omits labels for inference", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			_, hasLabels := raw["labels"]
			assert.False(t, hasLabels)
			_, _ = w.Write([]byte(`{"logits":[[1,0]]}`))
		}))
		defer server.Close()

		c := NewHTTP(server.URL, 2, 5*time.Second)
		out, err := c.Forward(context.Background(), [][]int{{1}}, [][]int{{1}}, nil)
		require.NoError(t, err)
		assert.Nil(t, out.Loss)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, err := w.Write([]byte("internal error"))
			require.NoError(t, err)
		}))
		defer server.Close()

		c := NewHTTP(server.URL, 2, 5*time.Second)
		_, err := c.Forward(context.Background(), [][]int{{1}}, [][]int{{1}}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "internal error")
	})

	t.Run("connection error", func(t *testing.T) {
		c := NewHTTP("http://localhost:99999", 2, 1*time.Second)
		_, err := c.Forward(context.Background(), [][]int{{1}}, [][]int{{1}}, nil)
		assert.Error(t, err)
	})
}

func TestHTTPHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"status":"ok","model_loaded":true,"model_version":"v2"}`))
	}))
	defer server.Close()

	c := NewHTTP(server.URL, 2, 5*time.Second)
	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "v2", health.ModelVersion)
}
