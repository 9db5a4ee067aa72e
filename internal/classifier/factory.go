package classifier

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/regrada-ai/finetune/internal/config"
	"github.com/regrada-ai/finetune/internal/model"
)

func Resolve(cfg *config.ProjectConfig) (model.Classifier, error) {
	switch cfg.Model.Kind {
	case "linear":
		return NewLinear(cfg.Model.VocabSize, cfg.Model.EmbeddingDim, cfg.Model.NumClasses, cfg.Model.Seed), nil
	case "mock":
		return NewMock(cfg.Model.NumClasses), nil
	case "http":
		baseURL := resolveBaseURL(cfg.Model.HTTP)
		if baseURL == "" {
			return nil, fmt.Errorf("missing model endpoint (set model.http.base_url or %s)", cfg.Model.HTTP.BaseURLEnv)
		}
		timeout := time.Duration(cfg.Model.HTTP.TimeoutMS) * time.Millisecond
		return NewHTTP(baseURL, cfg.Model.NumClasses, timeout), nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", cfg.Model.Kind)
	}
}

// resolveBaseURL prefers the environment over the config file.
func resolveBaseURL(cfg config.HTTPModelConfig) string {
	baseURL := ""
	if cfg.BaseURLEnv != "" {
		baseURL = strings.TrimSpace(os.Getenv(cfg.BaseURLEnv))
	}
	if baseURL == "" {
		baseURL = strings.TrimSpace(cfg.BaseURL)
	}
	return strings.TrimRight(baseURL, "/")
}
