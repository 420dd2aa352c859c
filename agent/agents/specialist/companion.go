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

type companionImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

// strategy is the fixed response descriptor for one emotion. The model
// phrases it; the strategy itself never comes from model judgment.
type strategy struct {
	Acknowledge   string `json:"acknowledge"`
	Comfort       string `json:"comfort"`
	PracticalStep string `json:"practical_step"`

	shouldTransition bool
}

var strategies = map[contractx.Emotion]strategy{
	contractx.EmotionAnxious: {
		Acknowledge:      "moving is genuinely stressful and the feeling makes sense",
		Comfort:          "nothing is lost, every detail shared so far is saved",
		PracticalStep:    "offer to continue with just one small question",
		shouldTransition: true,
	},
	contractx.EmotionConfused: {
		Acknowledge:      "the process can look complicated from the outside",
		Comfort:          "it is only a handful of simple questions in total",
		PracticalStep:    "offer to explain where we are and what comes next",
		shouldTransition: true,
	},
	contractx.EmotionFrustrated: {
		Acknowledge:      "this has taken effort and the irritation is fair",
		Comfort:          "there is no rush and nothing needs to be repeated",
		PracticalStep:    "offer to pause or let the user vent",
		shouldTransition: false,
	},
	contractx.EmotionUrgent: {
		Acknowledge:      "the deadline pressure is real",
		Comfort:          "a quote can still come together quickly",
		PracticalStep:    "offer to skip optional questions and fast-track",
		shouldTransition: true,
	},
	contractx.EmotionPositive: {
		Acknowledge:      "the enthusiasm is great",
		Comfort:          "things are on track",
		PracticalStep:    "keep the momentum with the next question",
		shouldTransition: true,
	},
	contractx.EmotionNeutral: {
		Acknowledge:      "thanks for sharing",
		Comfort:          "everything is noted",
		PracticalStep:    "continue with the next question",
		shouldTransition: true,
	},
}

func newCompanion(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*companionImpl, error) {
	runner, err := compileTextLLMGraph(ctx, chatModel, systemPrompt, "companion.reply_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile companion graph: %v", contractx.ErrModelInvoke, err)
	}
	return &companionImpl{runner: runner}, nil
}

func (c *companionImpl) Respond(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResult, error) {
	rec := req.Record
	if rec == nil {
		return contractx.SpecialistResult{}, fmt.Errorf("%w: fact record is required", contractx.ErrValidation)
	}

	emotion := req.Decision.Emotion
	strat, ok := strategies[emotion]
	if !ok {
		strat = strategies[contractx.EmotionNeutral]
	}

	// Frustration and chitchat never get steered back; the user decides
	// when to resume.
	transition := strat.shouldTransition && req.Decision.Intent.Primary != contractx.IntentChitchat

	result := contractx.SpecialistResult{Record: rec}
	var nextQuestion string
	if transition {
		if next, found := phasex.NextRequiredField(rec); found {
			result.NextField = next
			nextQuestion = string(subTaskFor(next, rec))
		}
	}

	payload := map[string]any{
		"user_message": req.UserMessage,
		"history":      req.History,
		"emotion":      string(emotion),
		"strategy":     strat,
		"transition":   transition,
	}
	if nextQuestion != "" {
		payload["next_question"] = nextQuestion
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.SpecialistResult{}, fmt.Errorf("%w: marshal companion payload: %v", contractx.ErrValidation, err)
	}

	text, err := streamText(ctx, c.runner, map[string]any{"input": string(input)}, req.Sink)
	if err != nil {
		log.Warn().Err(err).Str("session_id", req.SessionID).Str("emotion", string(emotion)).
			Msg("companion model call failed, using canned reply")
		text = cannedCompanionReply(emotion)
		if req.Sink != nil {
			req.Sink(text)
		}
	}
	result.Message = text
	return result, nil
}
