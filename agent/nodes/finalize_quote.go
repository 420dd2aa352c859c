package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
)

// FinalizeQuote freezes the record and submits it when the user asked
// to finalize and the phase engine agrees everything needed is in.
// Submission is best-effort: a storage failure degrades to an in-memory
// export with a warning.
func FinalizeQuote(ctx context.Context, in *GraphState, quotes contractx.QuoteSink) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}
	if quotes == nil {
		return in, nil
	}
	if in.Decision.Intent.Primary != contractx.IntentFinalize {
		return in, nil
	}
	if !phasex.Completion(in.Record).CanFinalize {
		log.Debug().Str("session_id", in.SessionID).Str("phase", string(in.Phase)).
			Msg("finalize requested before confirmation phase, ignored")
		return in, nil
	}

	in.Record.Freeze(in.Now)

	export, err := quotes.Submit(ctx, in.Record)
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).
			Msg("quote submission failed, exporting in-memory snapshot")
		export = contractx.QuoteExport{
			SessionID: in.SessionID,
			CreatedAt: in.Now,
			Record:    in.Record,
			Stored:    false,
		}
	}
	in.Export = &export
	return in, nil
}
