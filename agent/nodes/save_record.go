package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

// SaveRecord validates the merged record and persists the snapshot.
// A failed write is logged and tolerated: the store is a write sink,
// and the next turn recomputes everything from whatever loads.
func SaveRecord(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}

	// An invariant violation here is a programming bug and must surface.
	if err := in.Record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrInvariant, err)
	}

	in.Record.AppendTurn("user", in.Text, in.Now)
	if in.Result.Message != "" {
		in.Record.AppendTurn("assistant", in.Result.Message, in.Now)
	}
	in.Record.Touch(in.Now)

	if err := store.Save(ctx, in.Record); err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).
			Msg("fact record save failed, turn continues with in-memory state")
	}
	return in, nil
}
