package contract

import (
	"time"

	statex "github.com/erabu-ai/agentcore/agent/state"
)

// SpecialistType names one of the interchangeable turn responders.
type SpecialistType string

const (
	SpecialistCollector SpecialistType = "collector"
	SpecialistAdvisor   SpecialistType = "advisor"
	SpecialistCompanion SpecialistType = "companion"
)

func (s SpecialistType) Valid() bool {
	switch s {
	case SpecialistCollector, SpecialistAdvisor, SpecialistCompanion:
		return true
	}
	return false
}

// IntentFamily groups intents by how the turn should be handled.
type IntentFamily string

const (
	FamilyTaskControl IntentFamily = "task_control"
	FamilyInquiry     IntentFamily = "inquiry"
	FamilyAffect      IntentFamily = "affect"
	FamilyFlowControl IntentFamily = "flow_control"
)

type IntentType string

const (
	IntentProvideInfo IntentType = "provide_info"
	IntentModifyInfo  IntentType = "modify_info"
	IntentConfirm     IntentType = "confirm"
	IntentReject      IntentType = "reject"
	IntentSkip        IntentType = "skip"
	IntentComplete    IntentType = "complete"

	IntentAskPrice   IntentType = "ask_price"
	IntentAskProcess IntentType = "ask_process"
	IntentAskVendor  IntentType = "ask_vendor"
	IntentAskTips    IntentType = "ask_tips"
	IntentAskGeneral IntentType = "ask_general"

	IntentAnxiety     IntentType = "express_anxiety"
	IntentConfusion   IntentType = "express_confusion"
	IntentUrgency     IntentType = "express_urgency"
	IntentFrustration IntentType = "express_frustration"
	IntentChitchat    IntentType = "chitchat"

	IntentGoBack    IntentType = "go_back"
	IntentStartOver IntentType = "start_over"
	IntentSummarize IntentType = "summarize"
	IntentFinalize  IntentType = "finalize"
)

func (i IntentType) Valid() bool {
	return i.Family() != ""
}

func (i IntentType) Family() IntentFamily {
	switch i {
	case IntentProvideInfo, IntentModifyInfo, IntentConfirm, IntentReject, IntentSkip, IntentComplete:
		return FamilyTaskControl
	case IntentAskPrice, IntentAskProcess, IntentAskVendor, IntentAskTips, IntentAskGeneral:
		return FamilyInquiry
	case IntentAnxiety, IntentConfusion, IntentUrgency, IntentFrustration, IntentChitchat:
		return FamilyAffect
	case IntentGoBack, IntentStartOver, IntentSummarize, IntentFinalize:
		return FamilyFlowControl
	}
	return ""
}

type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionPositive   Emotion = "positive"
	EmotionAnxious    Emotion = "anxious"
	EmotionConfused   Emotion = "confused"
	EmotionFrustrated Emotion = "frustrated"
	EmotionUrgent     Emotion = "urgent"
)

func (e Emotion) Valid() bool {
	switch e {
	case EmotionNeutral, EmotionPositive, EmotionAnxious, EmotionConfused, EmotionFrustrated, EmotionUrgent:
		return true
	}
	return false
}

// Negative reports whether the emotion routes the turn to the companion
// regardless of co-extracted fields.
func (e Emotion) Negative() bool {
	switch e {
	case EmotionAnxious, EmotionConfused, EmotionFrustrated, EmotionUrgent:
		return true
	}
	return false
}

// SubTask is the deterministic hint the collector derives from which
// sub-attributes of its target field are still missing.
type SubTask string

const (
	SubTaskAskPostal           SubTask = "ask_postal"
	SubTaskAskCity             SubTask = "ask_city"
	SubTaskAskDistrictOptional SubTask = "ask_district_optional"
	SubTaskAskBuildingType     SubTask = "ask_building_type"
	SubTaskAskRoomType         SubTask = "ask_room_type"
	SubTaskAskPeriod           SubTask = "ask_period"
	SubTaskAskTimeSlot         SubTask = "ask_time_slot"
	SubTaskAskMoreItems        SubTask = "ask_more_items"
	SubTaskAskFloor            SubTask = "ask_floor"
	SubTaskAskElevator         SubTask = "ask_elevator"
	SubTaskAskSpecialRequests  SubTask = "ask_special_requests"
	SubTaskConfirmAddress      SubTask = "confirm_address"
	SubTaskConfirmSummary      SubTask = "confirm_summary"
	SubTaskAskValue            SubTask = "ask_value"
)

// ExtractionKind tags which arm of the extraction union is populated.
type ExtractionKind string

const (
	ExtractionScalar   ExtractionKind = "scalar"
	ExtractionAddress  ExtractionKind = "address"
	ExtractionSchedule ExtractionKind = "schedule"
	ExtractionAccess   ExtractionKind = "access"
	ExtractionItems    ExtractionKind = "items"
	ExtractionList     ExtractionKind = "list"
)

// Extraction is a transient per-turn value proposed by the router. It is
// never persisted directly; the validator must pass it first.
type Extraction struct {
	Field    statex.FieldID        `json:"field"`
	Kind     ExtractionKind        `json:"kind"`
	Scalar   string                `json:"scalar,omitempty"`
	Address  *statex.AddressPatch  `json:"address,omitempty"`
	Schedule *statex.SchedulePatch `json:"schedule,omitempty"`
	Access   *statex.AccessPatch   `json:"access,omitempty"`
	Items    []statex.Item         `json:"items,omitempty"`
	Entries  []string              `json:"entries,omitempty"`

	RawText           string  `json:"raw_text,omitempty"`
	NeedsVerification bool    `json:"needs_verification,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
}

type Intent struct {
	Primary    IntentType `json:"primary"`
	Secondary  IntentType `json:"secondary,omitempty"`
	Confidence float64    `json:"confidence"`
}

// Handoff is the router's advisory dispatch proposal.
type Handoff struct {
	Specialist         SpecialistType `json:"specialist"`
	Style              string         `json:"style,omitempty"`
	Acknowledge        string         `json:"acknowledge,omitempty"`
	SuggestedNextField statex.FieldID `json:"suggested_next_field,omitempty"`
}

// RouterDecision is the per-turn output of the decision engine. Every
// value in it is a proposal; the phase engine and the validator decide
// what actually happens.
type RouterDecision struct {
	Intent            Intent       `json:"intent"`
	Emotion           Emotion      `json:"emotion"`
	Extractions       []Extraction `json:"extractions,omitempty"`
	ProposedNextPhase string       `json:"proposed_next_phase,omitempty"`
	Handoff           Handoff      `json:"handoff"`

	// Fallback marks a decision synthesized without the model.
	Fallback bool `json:"fallback,omitempty"`
}

type RouteRequest struct {
	SessionID   string
	UserMessage string
	History     []statex.Turn
	Record      *statex.FactRecord
}

// DeltaSink receives streamed response text as it is generated. A nil
// sink is valid and drops deltas.
type DeltaSink func(delta string)

type SpecialistRequest struct {
	SessionID   string
	UserMessage string
	History     []statex.Turn
	Decision    RouterDecision
	Record      *statex.FactRecord
	Sink        DeltaSink
}

type SpecialistResult struct {
	Message              string
	Record               *statex.FactRecord
	NextField            statex.FieldID
	QuickReplies         []string
	NeedsFinalizeConfirm bool
}

// VerifyStatus classifies an address verification outcome.
type VerifyStatus string

const (
	VerifyVerified       VerifyStatus = "verified"
	VerifyNeedsSelection VerifyStatus = "needs_selection"
	VerifyNeedsMoreInfo  VerifyStatus = "needs_more_info"
	VerifyFailed         VerifyStatus = "failed"
)

// AddressVerification is the collaborator output for one lookup.
// Verified-but-unconfirmed results require one user confirmation
// round-trip before the slot may reach BASELINE.
type AddressVerification struct {
	Status     VerifyStatus        `json:"status"`
	Normalized statex.AddressPatch `json:"normalized,omitempty"`
	Candidates []string            `json:"candidates,omitempty"`
	Confirmed  bool                `json:"confirmed,omitempty"`
}

// QuoteExport is the frozen snapshot returned on finalization.
type QuoteExport struct {
	QuoteID   string             `json:"quote_id"`
	SessionID string             `json:"session_id"`
	CreatedAt time.Time          `json:"created_at"`
	Record    *statex.FactRecord `json:"record"`

	// Stored is false when the durable insert failed and the export
	// degraded to in-memory only.
	Stored bool `json:"stored"`
}
