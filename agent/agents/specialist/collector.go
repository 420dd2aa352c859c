package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	optionsx "github.com/erabu-ai/agentcore/agent/options"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

// optionsPrompt backs the one model fallback allowed for quick replies:
// it runs only when the static table has no entry for the sub-task.
const optionsPrompt = `You suggest quick-reply buttons for a moving-quote chat.
You receive a JSON payload with the question being asked and the fact
record. Respond with a single JSON object holding one key, "options",
an array of at most four short strings the user could tap as answers.
Options must be plain answer values, no punctuation, no sentences.`

type collectorImpl struct {
	runner        compose.Runnable[map[string]any, *schema.Message]
	optionsRunner compose.Runnable[map[string]any, optionsLLMOutput]
}

type optionsLLMOutput struct {
	Options []string `json:"options"`
}

func newCollector(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*collectorImpl, error) {
	runner, err := compileTextLLMGraph(ctx, chatModel, systemPrompt, "collector.reply_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile collector graph: %v", contractx.ErrModelInvoke, err)
	}
	optionsRunner, err := compileStructuredLLMGraph[optionsLLMOutput](ctx, chatModel, optionsPrompt, "collector.options_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile collector options graph: %v", contractx.ErrModelInvoke, err)
	}
	return &collectorImpl{runner: runner, optionsRunner: optionsRunner}, nil
}

func (c *collectorImpl) Respond(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResult, error) {
	rec := req.Record
	if rec == nil {
		return contractx.SpecialistResult{}, fmt.Errorf("%w: fact record is required", contractx.ErrValidation)
	}

	target, sub := collectionTarget(req.Decision, rec)

	result := contractx.SpecialistResult{
		Record:    rec,
		NextField: target,
	}
	if sub == contractx.SubTaskConfirmSummary {
		result.NeedsFinalizeConfirm = true
	}

	replies, ok := optionsx.QuickReplies(target, sub, rec)
	if !ok {
		replies = c.generateOptions(ctx, sub, rec)
	}
	result.QuickReplies = replies

	payload := map[string]any{
		"user_message": req.UserMessage,
		"history":      req.History,
		"record":       rec,
		"target_field": string(target),
		"sub_task":     string(sub),
	}
	if ack := strings.TrimSpace(req.Decision.Handoff.Acknowledge); ack != "" {
		payload["acknowledge"] = ack
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.SpecialistResult{}, fmt.Errorf("%w: marshal collector payload: %v", contractx.ErrValidation, err)
	}

	text, err := streamText(ctx, c.runner, map[string]any{"input": string(input)}, req.Sink)
	if err != nil {
		// Downstream model failure degrades to the canned question;
		// validated mutations in rec are emitted regardless.
		log.Warn().Err(err).Str("session_id", req.SessionID).Str("sub_task", string(sub)).
			Msg("collector model call failed, using canned reply")
		text = cannedCollectorReply(sub)
		if req.Sink != nil {
			req.Sink(text)
		}
	}
	result.Message = text

	// Asking the question is what unblocks advisory fields.
	if target.Valid() {
		rec.MarkAsked(target)
	}
	return result, nil
}

// collectionTarget resolves which field this turn drives: a pending
// verification overrides everything, then the router's suggestion, then
// the phase engine's priority order. No target left means summary time.
func collectionTarget(decision contractx.RouterDecision, rec *statex.FactRecord) (statex.FieldID, contractx.SubTask) {
	for _, field := range []statex.FieldID{statex.FieldOriginAddress, statex.FieldDestinationAddress} {
		if rec.StatusOf(field) == statex.StatusNeedsVerification {
			return field, contractx.SubTaskConfirmAddress
		}
	}

	if suggested := decision.Handoff.SuggestedNextField; suggested.Valid() && !rec.StatusOf(suggested).Complete() {
		return suggested, subTaskFor(suggested, rec)
	}

	if next, ok := phasex.NextRequiredField(rec); ok {
		return next, subTaskFor(next, rec)
	}
	return "", contractx.SubTaskConfirmSummary
}

// subTaskFor derives the concrete question from which sub-attributes of
// the target are still missing. Deterministic, never model judgment.
func subTaskFor(field statex.FieldID, rec *statex.FactRecord) contractx.SubTask {
	switch field {
	case statex.FieldOriginAddress:
		if strings.TrimSpace(rec.Origin.PostalCode) == "" {
			return contractx.SubTaskAskPostal
		}
		if strings.TrimSpace(rec.Origin.District) == "" {
			return contractx.SubTaskAskDistrictOptional
		}
		return contractx.SubTaskAskValue
	case statex.FieldDestinationAddress:
		if strings.TrimSpace(rec.Destination.City) == "" {
			return contractx.SubTaskAskCity
		}
		if strings.TrimSpace(rec.Destination.District) == "" {
			return contractx.SubTaskAskDistrictOptional
		}
		return contractx.SubTaskAskValue
	case statex.FieldSchedule:
		if rec.Schedule.Year == nil || rec.Schedule.Month == nil {
			return contractx.SubTaskAskValue
		}
		if rec.Schedule.Day == nil && strings.TrimSpace(rec.Schedule.Period) == "" {
			return contractx.SubTaskAskPeriod
		}
		return contractx.SubTaskAskTimeSlot
	case statex.FieldInventory:
		return contractx.SubTaskAskMoreItems
	case statex.FieldOriginBuildingType:
		return contractx.SubTaskAskBuildingType
	case statex.FieldOriginRoomType:
		return contractx.SubTaskAskRoomType
	case statex.FieldOriginFloorAccess, statex.FieldDestinationFloorAccess:
		slot := rec.OriginAccess
		if field == statex.FieldDestinationFloorAccess {
			slot = rec.DestinationAccess
		}
		if slot.Floor == nil {
			return contractx.SubTaskAskFloor
		}
		return contractx.SubTaskAskElevator
	case statex.FieldSpecialRequests:
		return contractx.SubTaskAskSpecialRequests
	}
	return contractx.SubTaskAskValue
}

// generateOptions is the single model fallback for quick replies.
// Best-effort: any failure yields no options at all.
func (c *collectorImpl) generateOptions(ctx context.Context, sub contractx.SubTask, rec *statex.FactRecord) []string {
	payload := map[string]any{
		"sub_task": string(sub),
		"record":   rec,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	out, err := c.optionsRunner.Invoke(ctx, map[string]any{"input": string(input)})
	if err != nil {
		log.Debug().Err(err).Str("sub_task", string(sub)).Msg("quick reply generation failed")
		return nil
	}
	if len(out.Options) > 4 {
		out.Options = out.Options[:4]
	}
	return out.Options
}
