package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	openrouterx "github.com/erabu-ai/agentcore/pkg/openrouter"
)

// Role names a model consumer so each can run a different model or
// temperature off one shared credential set.
type Role string

const (
	RoleRouter    Role = "router"
	RoleCollector Role = "collector"
	RoleAdvisor   Role = "advisor"
	RoleCompanion Role = "companion"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel          string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	CollectorModel       string  `envconfig:"COLLECTOR_MODEL" split_words:"true"`
	AdvisorModel         string  `envconfig:"ADVISOR_MODEL" split_words:"true"`
	CompanionModel       string  `envconfig:"COMPANION_MODEL" split_words:"true"`
	RouterTemperature    float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	CollectorTemperature float32 `envconfig:"COLLECTOR_TEMPERATURE" split_words:"true" default:"-1"`
	AdvisorTemperature   float32 `envconfig:"ADVISOR_TEMPERATURE" split_words:"true" default:"-1"`
	CompanionTemperature float32 `envconfig:"COMPANION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model settings for one role, falling back
// to the shared defaults.
func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleRouter:
		if v := strings.TrimSpace(c.RouterModel); v != "" {
			modelName = v
		}
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
	case RoleCollector:
		if v := strings.TrimSpace(c.CollectorModel); v != "" {
			modelName = v
		}
		if c.CollectorTemperature >= 0 {
			temp = c.CollectorTemperature
		}
	case RoleAdvisor:
		if v := strings.TrimSpace(c.AdvisorModel); v != "" {
			modelName = v
		}
		if c.AdvisorTemperature >= 0 {
			temp = c.AdvisorTemperature
		}
	case RoleCompanion:
		if v := strings.TrimSpace(c.CompanionModel); v != "" {
			modelName = v
		}
		if c.CompanionTemperature >= 0 {
			temp = c.CompanionTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
