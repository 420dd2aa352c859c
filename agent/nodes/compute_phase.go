package turnnode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
)

// ComputePhase derives the canonical phase from the post-merge record.
// The router's phase opinion is advisory; divergence is logged and never
// reconciled by trusting the model.
func ComputePhase(in *GraphState) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}

	in.Phase = phasex.Of(in.Record)

	if proposed := in.Decision.ProposedNextPhase; proposed != "" && proposed != string(in.Phase) {
		log.Debug().Str("session_id", in.SessionID).
			Str("engine_phase", string(in.Phase)).
			Str("proposed_phase", proposed).
			Msg("router phase proposal diverges from engine")
	}

	return in, nil
}
