package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	routerx "github.com/erabu-ai/agentcore/agent/router"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

func RouteTurn(ctx context.Context, in *GraphState, router contractx.Router) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}

	decision, err := router.Route(ctx, contractx.RouteRequest{
		SessionID:   in.SessionID,
		UserMessage: in.Text,
		History:     in.Record.History,
		Record:      in.Record,
	})
	if err != nil {
		// A malformed decision is a quality signal, never a turn killer.
		log.Warn().Err(err).Str("session_id", in.SessionID).
			Msg("router failed, falling back to phase-engine decision")
		decision = routerx.FallbackDecision(in.Record)
	}
	in.Decision = decision

	// Starting over recreates an empty record before anything from this
	// turn merges into it.
	if decision.Intent.Primary == contractx.IntentStartOver {
		in.Record = statex.NewFactRecord(in.SessionID, in.Now)
	}

	return in, nil
}
