package specialist

import (
	"context"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

func intPtr(v int) *int { return &v }

type fakeChatModel struct {
	content string
	err     error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	if f.err != nil {
		return nil, f.err
	}
	chunks := []*schema.Message{
		{Role: schema.Assistant, Content: f.content[:len(f.content)/2]},
		{Role: schema.Assistant, Content: f.content[len(f.content)/2:]},
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func emptyRecord(t *testing.T) *statex.FactRecord {
	t.Helper()
	return statex.NewFactRecord("s1", time.Now())
}

// completeRecord satisfies every phase so the collector reaches the
// summary confirmation.
func completeRecord(t *testing.T) *statex.FactRecord {
	t.Helper()
	rec := statex.NewFactRecord("s1", time.Now())

	rec.PartySize.Count = intPtr(2)
	mustSet(t, rec, statex.FieldPartySize, statex.StatusBaseline)

	rec.Origin.Value = "1-2-3 Jinnan, Shibuya"
	rec.Origin.PostalCode = "150-0041"
	mustSet(t, rec, statex.FieldOriginAddress, statex.StatusBaseline)

	rec.OriginBuildingType.Value = "house"
	mustSet(t, rec, statex.FieldOriginBuildingType, statex.StatusBaseline)

	rec.Destination.City = "Yokohama"
	mustSet(t, rec, statex.FieldDestinationAddress, statex.StatusBaseline)

	rec.Schedule.Year = intPtr(2026)
	rec.Schedule.Month = intPtr(11)
	rec.Schedule.Period = "early"
	mustSet(t, rec, statex.FieldSchedule, statex.StatusBaseline)

	rec.Inventory.Items = []statex.Item{{Label: "bed", Count: 1}}
	mustSet(t, rec, statex.FieldInventory, statex.StatusBaseline)

	rec.MarkAsked(statex.FieldDestinationFloorAccess)
	rec.MarkAsked(statex.FieldPackingOption)
	rec.MarkAsked(statex.FieldSpecialRequests)
	return rec
}

func mustSet(t *testing.T, rec *statex.FactRecord, field statex.FieldID, s statex.Status) {
	t.Helper()
	if err := rec.SetStatus(field, s); err != nil {
		t.Fatalf("SetStatus(%s, %s) error = %v", field, s, err)
	}
}

func TestCollectorRespondStreamsAndMarksAsked(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: "How many people are moving with you?"}
	collector, err := newCollector(context.Background(), fake, "collector prompt")
	if err != nil {
		t.Fatalf("newCollector() error = %v", err)
	}

	rec := emptyRecord(t)
	var streamed strings.Builder
	result, err := collector.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "hi, I want to move",
		Record:      rec,
		Sink:        func(d string) { streamed.WriteString(d) },
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if result.Message != "How many people are moving with you?" {
		t.Fatalf("Message = %q", result.Message)
	}
	if streamed.String() != result.Message {
		t.Fatalf("sink got %q, want the full message", streamed.String())
	}
	if result.NextField != statex.FieldPartySize {
		t.Fatalf("NextField = %s, want party_size", result.NextField)
	}
	if len(result.QuickReplies) == 0 {
		t.Fatal("expected static quick replies for party size")
	}
	if result.NeedsFinalizeConfirm {
		t.Fatal("NeedsFinalizeConfirm must be false mid-collection")
	}
	if got := rec.StatusOf(statex.FieldPartySize); got != statex.StatusAsked {
		t.Fatalf("status = %s, want ASKED after the question", got)
	}
}

func TestCollectorCannedFallbackOnModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: context.DeadlineExceeded}
	collector, err := newCollector(context.Background(), fake, "collector prompt")
	if err != nil {
		t.Fatalf("newCollector() error = %v", err)
	}

	var streamed strings.Builder
	result, err := collector.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "hello",
		Record:      emptyRecord(t),
		Sink:        func(d string) { streamed.WriteString(d) },
	})
	if err != nil {
		t.Fatalf("Respond() must degrade, got error %v", err)
	}
	if result.Message == "" {
		t.Fatal("expected a canned reply")
	}
	if streamed.String() != result.Message {
		t.Fatal("canned reply must still reach the sink")
	}
}

func TestCollectorSummaryConfirmation(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: "Everything is set. Shall I request the quote?"}
	collector, err := newCollector(context.Background(), fake, "collector prompt")
	if err != nil {
		t.Fatalf("newCollector() error = %v", err)
	}

	result, err := collector.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "that is all",
		Record:      completeRecord(t),
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if !result.NeedsFinalizeConfirm {
		t.Fatal("expected NeedsFinalizeConfirm at summary time")
	}
	if result.NextField != "" {
		t.Fatalf("NextField = %s, want empty", result.NextField)
	}
	if len(result.QuickReplies) != 2 {
		t.Fatalf("QuickReplies = %v, want confirm/modify", result.QuickReplies)
	}
}

func TestCollectionTargetPriority(t *testing.T) {
	t.Parallel()

	// A pending address verification overrides everything.
	rec := emptyRecord(t)
	rec.Origin.Value = "1-2-3 Jinnan"
	rec.Origin.PostalCode = "150-0041"
	rec.Origin.Status = statex.StatusNeedsVerification

	field, sub := collectionTarget(contractx.RouterDecision{
		Handoff: contractx.Handoff{SuggestedNextField: statex.FieldSchedule},
	}, rec)
	if field != statex.FieldOriginAddress || sub != contractx.SubTaskConfirmAddress {
		t.Fatalf("collectionTarget() = %s/%s, want origin_address/confirm_address", field, sub)
	}

	// Router suggestion wins when valid and incomplete.
	rec = emptyRecord(t)
	field, sub = collectionTarget(contractx.RouterDecision{
		Handoff: contractx.Handoff{SuggestedNextField: statex.FieldSchedule},
	}, rec)
	if field != statex.FieldSchedule || sub != contractx.SubTaskAskValue {
		t.Fatalf("collectionTarget() = %s/%s, want schedule/ask_value", field, sub)
	}

	// A completed suggestion falls through to phase order.
	rec = emptyRecord(t)
	rec.PartySize.Count = intPtr(2)
	mustSet(t, rec, statex.FieldPartySize, statex.StatusBaseline)
	field, _ = collectionTarget(contractx.RouterDecision{
		Handoff: contractx.Handoff{SuggestedNextField: statex.FieldPartySize},
	}, rec)
	if field != statex.FieldOriginAddress {
		t.Fatalf("collectionTarget() = %s, want origin_address from phase order", field)
	}

	// Nothing left means summary time.
	field, sub = collectionTarget(contractx.RouterDecision{}, completeRecord(t))
	if field != "" || sub != contractx.SubTaskConfirmSummary {
		t.Fatalf("collectionTarget() = %s/%s, want \"\"/confirm_summary", field, sub)
	}
}

func TestSubTaskForTable(t *testing.T) {
	t.Parallel()

	rec := emptyRecord(t)

	tests := []struct {
		name  string
		setup func(*statex.FactRecord)
		field statex.FieldID
		want  contractx.SubTask
	}{
		{
			name:  "origin missing postal",
			setup: func(r *statex.FactRecord) {},
			field: statex.FieldOriginAddress,
			want:  contractx.SubTaskAskPostal,
		},
		{
			name: "origin missing district",
			setup: func(r *statex.FactRecord) {
				r.Origin.PostalCode = "150-0041"
			},
			field: statex.FieldOriginAddress,
			want:  contractx.SubTaskAskDistrictOptional,
		},
		{
			name:  "destination missing city",
			setup: func(r *statex.FactRecord) {},
			field: statex.FieldDestinationAddress,
			want:  contractx.SubTaskAskCity,
		},
		{
			name:  "schedule missing year",
			setup: func(r *statex.FactRecord) {},
			field: statex.FieldSchedule,
			want:  contractx.SubTaskAskValue,
		},
		{
			name: "schedule missing period",
			setup: func(r *statex.FactRecord) {
				r.Schedule.Year = intPtr(2026)
				r.Schedule.Month = intPtr(11)
			},
			field: statex.FieldSchedule,
			want:  contractx.SubTaskAskPeriod,
		},
		{
			name: "schedule missing time slot",
			setup: func(r *statex.FactRecord) {
				r.Schedule.Year = intPtr(2026)
				r.Schedule.Month = intPtr(11)
				r.Schedule.Day = intPtr(14)
			},
			field: statex.FieldSchedule,
			want:  contractx.SubTaskAskTimeSlot,
		},
		{
			name:  "inventory",
			setup: func(r *statex.FactRecord) {},
			field: statex.FieldInventory,
			want:  contractx.SubTaskAskMoreItems,
		},
		{
			name:  "floor access missing floor",
			setup: func(r *statex.FactRecord) {},
			field: statex.FieldOriginFloorAccess,
			want:  contractx.SubTaskAskFloor,
		},
		{
			name: "floor access missing elevator",
			setup: func(r *statex.FactRecord) {
				r.OriginAccess.Floor = intPtr(4)
			},
			field: statex.FieldOriginFloorAccess,
			want:  contractx.SubTaskAskElevator,
		},
		{
			name:  "special requests",
			setup: func(r *statex.FactRecord) {},
			field: statex.FieldSpecialRequests,
			want:  contractx.SubTaskAskSpecialRequests,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := rec.Clone()
			tc.setup(r)
			if got := subTaskFor(tc.field, r); got != tc.want {
				t.Fatalf("subTaskFor(%s) = %s, want %s", tc.field, got, tc.want)
			}
		})
	}
}

func TestAdvisorSteersBackToCollection(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: "Prices depend on volume and distance. Now, how many people are moving?"}
	advisor, err := newAdvisor(context.Background(), fake, "advisor prompt")
	if err != nil {
		t.Fatalf("newAdvisor() error = %v", err)
	}

	result, err := advisor.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "how much does a move cost?",
		Record:      emptyRecord(t),
		Decision: contractx.RouterDecision{
			Intent:  contractx.Intent{Primary: contractx.IntentAskPrice},
			Emotion: contractx.EmotionNeutral,
		},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if result.NextField != statex.FieldPartySize {
		t.Fatalf("NextField = %s, want party_size transition", result.NextField)
	}
}

func TestAdvisorHoldsBackOnNegativeEmotion(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: "Here is how pricing works."}
	advisor, err := newAdvisor(context.Background(), fake, "advisor prompt")
	if err != nil {
		t.Fatalf("newAdvisor() error = %v", err)
	}

	result, err := advisor.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "why is this so expensive??",
		Record:      emptyRecord(t),
		Decision: contractx.RouterDecision{
			Intent:  contractx.Intent{Primary: contractx.IntentAskPrice},
			Emotion: contractx.EmotionFrustrated,
		},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if result.NextField != "" {
		t.Fatalf("NextField = %s, want no transition under negative affect", result.NextField)
	}
}

func TestAdvisorCannedFallback(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: context.DeadlineExceeded}
	advisor, err := newAdvisor(context.Background(), fake, "advisor prompt")
	if err != nil {
		t.Fatalf("newAdvisor() error = %v", err)
	}

	result, err := advisor.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "how long does it take?",
		Record:      emptyRecord(t),
		Decision: contractx.RouterDecision{
			Intent: contractx.Intent{Primary: contractx.IntentAskProcess},
		},
	})
	if err != nil {
		t.Fatalf("Respond() must degrade, got error %v", err)
	}
	if result.Message != cannedAdvisorReply {
		t.Fatalf("Message = %q, want canned advisor reply", result.Message)
	}
}

func TestCompanionTransitionByEmotion(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{content: "That is completely understandable. Whenever you are ready, one small question."}
	companion, err := newCompanion(context.Background(), fake, "companion prompt")
	if err != nil {
		t.Fatalf("newCompanion() error = %v", err)
	}

	// Anxiety resumes with a gentle transition.
	result, err := companion.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "this is all so overwhelming",
		Record:      emptyRecord(t),
		Decision: contractx.RouterDecision{
			Intent:  contractx.Intent{Primary: contractx.IntentAnxiety},
			Emotion: contractx.EmotionAnxious,
		},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if result.NextField != statex.FieldPartySize {
		t.Fatalf("NextField = %s, want party_size transition", result.NextField)
	}

	// Frustration never steers back.
	result, err = companion.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "I am so done with this",
		Record:      emptyRecord(t),
		Decision: contractx.RouterDecision{
			Intent:  contractx.Intent{Primary: contractx.IntentFrustration},
			Emotion: contractx.EmotionFrustrated,
		},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if result.NextField != "" {
		t.Fatalf("NextField = %s, want no transition when frustrated", result.NextField)
	}
}

func TestCompanionCannedFallback(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: context.DeadlineExceeded}
	companion, err := newCompanion(context.Background(), fake, "companion prompt")
	if err != nil {
		t.Fatalf("newCompanion() error = %v", err)
	}

	result, err := companion.Respond(context.Background(), contractx.SpecialistRequest{
		SessionID:   "s1",
		UserMessage: "ugh",
		Record:      emptyRecord(t),
		Decision: contractx.RouterDecision{
			Intent:  contractx.Intent{Primary: contractx.IntentFrustration},
			Emotion: contractx.EmotionFrustrated,
		},
	})
	if err != nil {
		t.Fatalf("Respond() must degrade, got error %v", err)
	}
	if result.Message != cannedByEmotion[contractx.EmotionFrustrated] {
		t.Fatalf("Message = %q, want canned frustrated reply", result.Message)
	}
}
