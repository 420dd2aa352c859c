package specialist

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	llmx "github.com/erabu-ai/agentcore/agent/llm"
)

func TestNewRegistryBuildsAllRoles(t *testing.T) {
	t.Parallel()

	cfg := llmx.Config{
		BaseURL:            "https://openrouter.ai/api/v1",
		APIKey:             "sk-test",
		Model:              "qwen/qwen3-30b",
		MaxCompletionToken: 2000,
		Temperature:        0.5,
		RouterModel:        "qwen/qwen3-8b",
		RouterTemperature:  0,
	}

	registry, err := NewRegistry(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if registry.Router() == nil {
		t.Fatal("router missing")
	}
	if registry.Collector() == nil || registry.Advisor() == nil || registry.Companion() == nil {
		t.Fatal("specialist missing")
	}
}

func TestNewRegistryRejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(context.Background(), llmx.Config{Model: "qwen/qwen3-30b"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for missing api key", err)
	}
	if _, err := NewRegistry(context.Background(), llmx.Config{APIKey: "sk-test"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for missing model", err)
	}
}
