package specialist

import (
	"context"
	"encoding/json"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
)

// nearTotalFraction marks the point where the advisor stops steering
// back to collection: almost everything is already in.
const nearTotalFraction = 0.9

type advisorImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

// knowledgeNotes grounds each inquiry topic with a short factual note
// so the answer stays anchored rather than free-styled.
var knowledgeNotes = map[string]string{
	"pricing": "Price depends on distance, total volume, floor access, and the chosen packing service. The final quote lists each component.",
	"process": "A move runs through quote, booking, packing day (if chosen), moving day, and settlement. Dates can usually be adjusted until one week before.",
	"vendor":  "The platform compares several licensed movers; all of them carry cargo insurance and background-checked staff.",
	"tips":    "Labeling boxes by room, photographing cable setups, and defrosting the refrigerator the day before save the most time.",
	"general": "The assistant collects the facts a mover needs and requests a binding quote; nothing is charged before the user confirms it.",
}

func newAdvisor(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*advisorImpl, error) {
	runner, err := compileTextLLMGraph(ctx, chatModel, systemPrompt, "advisor.reply_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile advisor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &advisorImpl{runner: runner}, nil
}

func (a *advisorImpl) Respond(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResult, error) {
	rec := req.Record
	if rec == nil {
		return contractx.SpecialistResult{}, fmt.Errorf("%w: fact record is required", contractx.ErrValidation)
	}

	topic := topicFor(req.Decision.Intent.Primary)
	report := phasex.Completion(rec)

	// Push back toward collection unless nearly done or the user is in
	// a negative place.
	transition := report.Fraction < nearTotalFraction && !req.Decision.Emotion.Negative()

	result := contractx.SpecialistResult{Record: rec}
	var nextQuestion string
	if transition && report.Next != "" {
		result.NextField = report.Next
		nextQuestion = string(subTaskFor(report.Next, rec))
	}

	payload := map[string]any{
		"user_message": req.UserMessage,
		"history":      req.History,
		"topic":        topic,
		"knowledge":    knowledgeNotes[topic],
		"transition":   transition,
	}
	if nextQuestion != "" {
		payload["next_question"] = nextQuestion
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.SpecialistResult{}, fmt.Errorf("%w: marshal advisor payload: %v", contractx.ErrValidation, err)
	}

	text, err := streamText(ctx, a.runner, map[string]any{"input": string(input)}, req.Sink)
	if err != nil {
		log.Warn().Err(err).Str("session_id", req.SessionID).Str("topic", topic).
			Msg("advisor model call failed, using canned reply")
		text = cannedAdvisorReply
		if req.Sink != nil {
			req.Sink(text)
		}
	}
	result.Message = text
	return result, nil
}

func topicFor(intent contractx.IntentType) string {
	switch intent {
	case contractx.IntentAskPrice:
		return "pricing"
	case contractx.IntentAskProcess:
		return "process"
	case contractx.IntentAskVendor:
		return "vendor"
	case contractx.IntentAskTips:
		return "tips"
	}
	return "general"
}
