package turnnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

func LoadOrCreateRecord(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	rec, err := store.Load(ctx, in.SessionID)
	if err != nil {
		if !errors.Is(err, statex.ErrRecordNotFound) {
			return nil, err
		}
		rec = statex.NewFactRecord(in.SessionID, in.Now)
	}

	// The turn works on a copy; the original stays intact until save.
	in.Record = rec.Clone()
	return in, nil
}
