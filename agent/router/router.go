// Package router runs the one structured model call a turn gets and
// turns its output into a decision the orchestrator can trust. Every
// enum the model returns is re-checked; unknown values fall back to
// safe defaults.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

type routerImpl struct {
	runner compose.Runnable[map[string]any, llmDecision]
}

// llmDecision mirrors the bounded response schema the model is prompted
// to emit. Every enum is a plain string here; normalization happens on
// our side.
type llmDecision struct {
	Intent struct {
		Primary    string  `json:"primary"`
		Secondary  string  `json:"secondary,omitempty"`
		Confidence float64 `json:"confidence,omitempty"`
	} `json:"intent"`
	Emotion           string                   `json:"emotion,omitempty"`
	ExtractedFields   map[string]llmExtraction `json:"extracted_fields,omitempty"`
	ProposedNextPhase string                   `json:"proposed_next_phase,omitempty"`
	ProposedHandoff   struct {
		Specialist         string `json:"specialist,omitempty"`
		Style              string `json:"style,omitempty"`
		Acknowledge        string `json:"acknowledge,omitempty"`
		SuggestedNextField string `json:"suggested_next_field,omitempty"`
	} `json:"proposed_handoff"`
}

type llmExtraction struct {
	RawText string `json:"raw_text,omitempty"`
	Value   string `json:"value,omitempty"`

	PostalCode   string `json:"postal_code,omitempty"`
	Prefecture   string `json:"prefecture,omitempty"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	BuildingType string `json:"building_type,omitempty"`
	RoomType     string `json:"room_type,omitempty"`

	Year     *int   `json:"year,omitempty"`
	Month    *int   `json:"month,omitempty"`
	Day      *int   `json:"day,omitempty"`
	Period   string `json:"period,omitempty"`
	TimeSlot string `json:"time_slot,omitempty"`

	Floor       *int  `json:"floor,omitempty"`
	HasElevator *bool `json:"has_elevator,omitempty"`

	Items   []statex.Item `json:"items,omitempty"`
	Entries []string      `json:"entries,omitempty"`
	NoMore  bool          `json:"no_more,omitempty"`

	NeedsVerification bool    `json:"needs_verification,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
}

// New compiles the router graph: prompt -> model -> JSON parse.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Router, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: router prompt", contractx.ErrPromptMissing)
	}
	runner, err := compileStructuredLLMGraph[llmDecision](ctx, chatModel, systemPrompt, "router.decision_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &routerImpl{runner: runner}, nil
}

func (r *routerImpl) Route(ctx context.Context, req contractx.RouteRequest) (contractx.RouterDecision, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.RouterDecision{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"user_message": req.UserMessage,
		"history":      summarizeHistory(req.History),
		"record":       req.Record,
		"phase":        string(phasex.Of(req.Record)),
	}
	if next, ok := phasex.NextRequiredField(req.Record); ok {
		payload["next_required_field"] = string(next)
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return contractx.RouterDecision{}, fmt.Errorf("%w: marshal router payload: %v", contractx.ErrValidation, err)
	}

	out, err := r.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		// Malformed or unavailable model output degrades to the
		// deterministic decision; the error is a quality signal only.
		log.Warn().Err(err).Str("session_id", req.SessionID).Msg("router model call failed, using fallback decision")
		return FallbackDecision(req.Record), nil
	}

	return normalizeDecision(out), nil
}

// FallbackDecision builds a usable decision straight from the phase
// engine when the model output cannot be trusted.
func FallbackDecision(rec *statex.FactRecord) contractx.RouterDecision {
	decision := contractx.RouterDecision{
		Intent:  contractx.Intent{Primary: contractx.IntentProvideInfo},
		Emotion: contractx.EmotionNeutral,
		Handoff: contractx.Handoff{
			Specialist: contractx.SpecialistCollector,
		},
		ProposedNextPhase: string(phasex.Of(rec)),
		Fallback:          true,
	}
	if next, ok := phasex.NextRequiredField(rec); ok {
		decision.Handoff.SuggestedNextField = next
	}
	return decision
}

func normalizeDecision(out llmDecision) contractx.RouterDecision {
	decision := contractx.RouterDecision{
		Intent: contractx.Intent{
			Primary:    normalizeIntent(out.Intent.Primary),
			Confidence: clamp01(out.Intent.Confidence),
		},
		Emotion:           normalizeEmotion(out.Emotion),
		ProposedNextPhase: normalizePhase(out.ProposedNextPhase),
		Handoff: contractx.Handoff{
			Specialist:  normalizeSpecialist(out.ProposedHandoff.Specialist),
			Style:       strings.TrimSpace(out.ProposedHandoff.Style),
			Acknowledge: strings.TrimSpace(out.ProposedHandoff.Acknowledge),
		},
	}

	if secondary := contractx.IntentType(normalizeToken(out.Intent.Secondary)); secondary.Valid() {
		decision.Intent.Secondary = secondary
	}
	if suggested := statex.FieldID(normalizeToken(out.ProposedHandoff.SuggestedNextField)); suggested.Valid() {
		decision.Handoff.SuggestedNextField = suggested
	}

	for rawField, raw := range out.ExtractedFields {
		field := statex.FieldID(normalizeToken(rawField))
		if !field.Valid() {
			log.Debug().Str("field", rawField).Msg("router extraction for unknown field dropped")
			continue
		}
		ext, ok := toExtraction(field, raw)
		if !ok {
			continue
		}
		decision.Extractions = append(decision.Extractions, ext)
	}

	// Negative affect wins the dispatch even when fields co-occur.
	if decision.Emotion.Negative() {
		decision.Handoff.Specialist = contractx.SpecialistCompanion
	}
	// Inquiry intents without an affect override go to the advisor.
	if decision.Intent.Primary.Family() == contractx.FamilyInquiry && !decision.Emotion.Negative() {
		decision.Handoff.Specialist = contractx.SpecialistAdvisor
	}

	return decision
}

// toExtraction maps the flat model payload into the tagged union the
// validator understands.
func toExtraction(field statex.FieldID, raw llmExtraction) (contractx.Extraction, bool) {
	ext := contractx.Extraction{
		Field:             field,
		RawText:           strings.TrimSpace(raw.RawText),
		NeedsVerification: raw.NeedsVerification,
		Confidence:        clamp01(raw.Confidence),
	}

	switch field {
	case statex.FieldOriginAddress, statex.FieldDestinationAddress:
		ext.Kind = contractx.ExtractionAddress
		ext.Address = &statex.AddressPatch{
			Value:        strings.TrimSpace(raw.Value),
			PostalCode:   strings.TrimSpace(raw.PostalCode),
			Prefecture:   strings.TrimSpace(raw.Prefecture),
			City:         strings.TrimSpace(raw.City),
			District:     strings.TrimSpace(raw.District),
			BuildingType: strings.TrimSpace(raw.BuildingType),
			RoomType:     strings.TrimSpace(raw.RoomType),
		}
	case statex.FieldSchedule:
		ext.Kind = contractx.ExtractionSchedule
		ext.Schedule = &statex.SchedulePatch{
			Value:    strings.TrimSpace(raw.Value),
			Year:     raw.Year,
			Month:    raw.Month,
			Day:      raw.Day,
			Period:   normalizeToken(raw.Period),
			TimeSlot: normalizeToken(raw.TimeSlot),
		}
	case statex.FieldOriginFloorAccess, statex.FieldDestinationFloorAccess:
		ext.Kind = contractx.ExtractionAccess
		ext.Access = &statex.AccessPatch{
			Floor:       raw.Floor,
			HasElevator: raw.HasElevator,
		}
	case statex.FieldInventory:
		ext.Kind = contractx.ExtractionItems
		ext.Items = raw.Items
		if raw.NoMore {
			ext.Scalar = statex.NoMoreToken
		}
	case statex.FieldSpecialRequests:
		ext.Kind = contractx.ExtractionList
		ext.Entries = raw.Entries
		if raw.NoMore {
			ext.Scalar = statex.NoMoreToken
		}
	default:
		value := strings.TrimSpace(raw.Value)
		if value == "" {
			return contractx.Extraction{}, false
		}
		ext.Kind = contractx.ExtractionScalar
		ext.Scalar = value
	}
	return ext, true
}

func normalizeIntent(raw string) contractx.IntentType {
	intent := contractx.IntentType(normalizeToken(raw))
	if intent.Valid() {
		return intent
	}
	return contractx.IntentProvideInfo
}

func normalizeEmotion(raw string) contractx.Emotion {
	emotion := contractx.Emotion(normalizeToken(raw))
	if emotion.Valid() {
		return emotion
	}
	return contractx.EmotionNeutral
}

// normalizePhase drops phase proposals outside the known linear order.
func normalizePhase(raw string) string {
	proposed := phasex.Phase(strings.ToUpper(strings.TrimSpace(raw)))
	if phasex.Valid(proposed) {
		return string(proposed)
	}
	return ""
}

func normalizeSpecialist(raw string) contractx.SpecialistType {
	specialist := contractx.SpecialistType(normalizeToken(raw))
	if specialist.Valid() {
		return specialist
	}
	return contractx.SpecialistCollector
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func summarizeHistory(turns []statex.Turn) []map[string]string {
	out := make([]map[string]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, map[string]string{
			"role": t.Role,
			"text": t.Text,
		})
	}
	return out
}
