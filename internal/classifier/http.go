package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/regrada-ai/finetune/internal/model"
)

// ForwardRequest is the body of POST /forward.
type ForwardRequest struct {
	InputIDs      [][]int `json:"input_ids"`
	AttentionMask [][]int `json:"attention_mask"`
	Labels        []int   `json:"labels,omitempty"`
}

// ForwardResponse is the remote model output.
type ForwardResponse struct {
	Loss   *float64    `json:"loss,omitempty"`
	Logits [][]float64 `json:"logits"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelVersion string `json:"model_version"`
}

// HTTP is a classifier served by a remote inference service. Its weights
// live on the server, so it exposes no local parameters.
type HTTP struct {
	baseURL    string
	numClasses int
	httpClient *http.Client
}

func NewHTTP(baseURL string, numClasses int, timeout time.Duration) *HTTP {
	return &HTTP{
		baseURL:    baseURL,
		numClasses: numClasses,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTP) Forward(ctx context.Context, inputIDs, attentionMask [][]int, labels []int) (model.Output, error) {
	body, err := json.Marshal(ForwardRequest{
		InputIDs:      inputIDs,
		AttentionMask: attentionMask,
		Labels:        labels,
	})
	if err != nil {
		return model.Output{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forward", bytes.NewReader(body))
	if err != nil {
		return model.Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Output{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil || len(respBody) == 0 {
			return model.Output{}, fmt.Errorf("model service returned status %d", resp.StatusCode)
		}
		return model.Output{}, fmt.Errorf("model service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var result ForwardResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.Output{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return model.Output{Loss: result.Loss, Logits: result.Logits}, nil
}

// Health checks the model service health
func (c *HTTP) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model service returned status %d", resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (c *HTTP) Parameters() []*model.Parameter {
	return nil
}

func (c *HTTP) NumClasses() int {
	return c.numClasses
}
