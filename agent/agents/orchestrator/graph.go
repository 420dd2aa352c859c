package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	turnnode "github.com/erabu-ai/agentcore/agent/nodes"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput], error) {
	graph := compose.NewGraph[turnnode.GraphInput, turnnode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in turnnode.GraphInput) (*turnnode.GraphState, error) {
			return turnnode.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_record",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.LoadOrCreateRecord(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_record: %w", err)
	}

	if err := graph.AddLambdaNode("route_turn",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.RouteTurn(ctx, in, o.models.Router())
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_turn: %w", err)
	}

	if err := graph.AddLambdaNode("merge_extractions",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.MergeExtractions(ctx, in, o.verifier)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node merge_extractions: %w", err)
	}

	if err := graph.AddLambdaNode("compute_phase",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.ComputePhase(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node compute_phase: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_specialist",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.Dispatch(ctx, in, o.models)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_specialist: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_quote",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.FinalizeQuote(ctx, in, o.quotes)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_quote: %w", err)
	}

	if err := graph.AddLambdaNode("save_record",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.SaveRecord(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_record: %w", err)
	}

	if err := graph.AddLambdaNode("build_output",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (turnnode.GraphOutput, error) {
			return turnnode.BuildOutput(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node build_output: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_record"},
		{"load_record", "route_turn"},
		{"route_turn", "merge_extractions"},
		{"merge_extractions", "compute_phase"},
		{"compute_phase", "dispatch_specialist"},
		{"dispatch_specialist", "finalize_quote"},
		{"finalize_quote", "save_record"},
		{"save_record", "build_output"},
		{"build_output", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
