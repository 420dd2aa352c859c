package specialist

import (
	"context"
	"fmt"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	llmx "github.com/erabu-ai/agentcore/agent/llm"
	promptx "github.com/erabu-ai/agentcore/agent/prompt"
	routerx "github.com/erabu-ai/agentcore/agent/router"
)

type registryImpl struct {
	router    contractx.Router
	collector contractx.Specialist
	advisor   contractx.Specialist
	companion contractx.Specialist
}

func (r *registryImpl) Router() contractx.Router {
	return r.router
}

func (r *registryImpl) Collector() contractx.Specialist {
	return r.collector
}

func (r *registryImpl) Advisor() contractx.Specialist {
	return r.advisor
}

func (r *registryImpl) Companion() contractx.Specialist {
	return r.companion
}

func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	routerModelCfg := cfg.OpenRouterFor(llmx.RoleRouter)
	routerModel, err := routerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
	}
	collectorModelCfg := cfg.OpenRouterFor(llmx.RoleCollector)
	collectorModel, err := collectorModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create collector model: %v", contractx.ErrModelInvoke, err)
	}
	advisorModelCfg := cfg.OpenRouterFor(llmx.RoleAdvisor)
	advisorModel, err := advisorModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create advisor model: %v", contractx.ErrModelInvoke, err)
	}
	companionModelCfg := cfg.OpenRouterFor(llmx.RoleCompanion)
	companionModel, err := companionModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create companion model: %v", contractx.ErrModelInvoke, err)
	}

	router, err := routerx.New(ctx, routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}
	collector, err := newCollector(ctx, collectorModel, prompts.Collector)
	if err != nil {
		return nil, err
	}
	advisor, err := newAdvisor(ctx, advisorModel, prompts.Advisor)
	if err != nil {
		return nil, err
	}
	companion, err := newCompanion(ctx, companionModel, prompts.Companion)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:    router,
		collector: collector,
		advisor:   advisor,
		companion: companion,
	}, nil
}
