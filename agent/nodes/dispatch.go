package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
)

// Dispatch hands the turn to one specialist. Selection is the engine's
// rule, not the model's proposal: negative affect always wins, then
// inquiry goes to the advisor, remaining affect to the companion, and
// everything else drives collection.
func Dispatch(ctx context.Context, in *GraphState, models contractx.Registry) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}

	specialist := pickSpecialist(in.Decision, models)

	result, err := specialist.Respond(ctx, contractx.SpecialistRequest{
		SessionID:   in.SessionID,
		UserMessage: in.Text,
		History:     in.Record.History,
		Decision:    in.Decision,
		Record:      in.Record,
		Sink:        in.Sink,
	})
	if err != nil {
		return nil, err
	}
	if result.Record != nil {
		in.Record = result.Record
	}
	in.Result = result
	return in, nil
}

func pickSpecialist(decision contractx.RouterDecision, models contractx.Registry) contractx.Specialist {
	if decision.Emotion.Negative() {
		return models.Companion()
	}
	switch decision.Intent.Primary.Family() {
	case contractx.FamilyInquiry:
		return models.Advisor()
	case contractx.FamilyAffect:
		return models.Companion()
	}
	return models.Collector()
}
