package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

const (
	UIHintAddressVerify  = "address_verify"
	UIHintItemEvaluation = "item_evaluation"
	UIHintConfirmCard    = "confirm_card"
)

func BuildOutput(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Record == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	message := strings.TrimSpace(in.Result.Message)
	if message == "" {
		return GraphOutput{}, fmt.Errorf("%w: specialist returned empty message", contractx.ErrValidation)
	}

	// The specialist may have touched the record after ComputePhase
	// ran, so the exported phase is derived again from the final
	// record. Phase and Completion must describe the same state.
	finalPhase := phasex.Of(in.Record)

	return GraphOutput{
		Message:      message,
		Phase:        finalPhase,
		Completion:   phasex.Completion(in.Record),
		NextField:    in.Result.NextField,
		QuickReplies: in.Result.QuickReplies,
		UIHint:       uiHintFor(in, finalPhase),
		NeedsConfirm: in.Result.NeedsFinalizeConfirm,
		Export:       in.Export,
	}, nil
}

// uiHintFor tells the transport which rich component fits the turn.
func uiHintFor(in *GraphState, phase phasex.Phase) string {
	for _, field := range []statex.FieldID{statex.FieldOriginAddress, statex.FieldDestinationAddress} {
		if in.Record.StatusOf(field) == statex.StatusNeedsVerification {
			return UIHintAddressVerify
		}
	}
	if in.Result.NeedsFinalizeConfirm {
		return UIHintConfirmCard
	}
	switch phase {
	case phasex.Inventory:
		return UIHintItemEvaluation
	case phasex.Confirmation:
		return UIHintConfirmCard
	}
	return ""
}
