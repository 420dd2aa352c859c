package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	turnnode "github.com/erabu-ai/agentcore/agent/nodes"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

func intPtr(v int) *int { return &v }

type fakeStore struct {
	mu      sync.Mutex
	records map[string]*statex.FactRecord
	loadErr error
	saveErr error
	saves   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*statex.FactRecord)}
}

func (f *fakeStore) Load(ctx context.Context, sessionID string) (*statex.FactRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	rec, ok := f.records[sessionID]
	if !ok {
		return nil, statex.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (f *fakeStore) Save(ctx context.Context, rec *statex.FactRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.records[rec.SessionID] = rec.Clone()
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, sessionID)
	return nil
}

type fakeRouter struct {
	mu        sync.Mutex
	decisions []contractx.RouterDecision
	err       error
	calls     int
}

func (f *fakeRouter) Route(ctx context.Context, req contractx.RouteRequest) (contractx.RouterDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return contractx.RouterDecision{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.decisions) {
		idx = len(f.decisions) - 1
	}
	return f.decisions[idx], nil
}

type fakeSpecialist struct {
	mu       sync.Mutex
	message  string
	err      error
	calls    int
	lastReqs []contractx.SpecialistRequest
	block    chan struct{}
	mutate   func(*statex.FactRecord)
}

func (f *fakeSpecialist) Respond(ctx context.Context, req contractx.SpecialistRequest) (contractx.SpecialistResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastReqs = append(f.lastReqs, req)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return contractx.SpecialistResult{}, f.err
	}
	if req.Sink != nil {
		req.Sink(f.message)
	}
	if f.mutate != nil {
		f.mutate(req.Record)
	}
	return contractx.SpecialistResult{Message: f.message, Record: req.Record}, nil
}

type fakeRegistry struct {
	router    contractx.Router
	collector contractx.Specialist
	advisor   contractx.Specialist
	companion contractx.Specialist
}

func (f *fakeRegistry) Router() contractx.Router { return f.router }

func (f *fakeRegistry) Collector() contractx.Specialist { return f.collector }

func (f *fakeRegistry) Advisor() contractx.Specialist { return f.advisor }

func (f *fakeRegistry) Companion() contractx.Specialist { return f.companion }

type fakeQuoteSink struct {
	mu      sync.Mutex
	err     error
	submits int
}

func (f *fakeQuoteSink) Submit(ctx context.Context, rec *statex.FactRecord) (contractx.QuoteExport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.err != nil {
		return contractx.QuoteExport{}, f.err
	}
	return contractx.QuoteExport{
		QuoteID:   "q1",
		SessionID: rec.SessionID,
		CreatedAt: time.Now(),
		Record:    rec,
		Stored:    true,
	}, nil
}

func newTestOrchestrator(t *testing.T, store statex.Store, registry contractx.Registry, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(context.Background(), store, registry, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func defaultRegistry(router contractx.Router) (*fakeRegistry, *fakeSpecialist, *fakeSpecialist, *fakeSpecialist) {
	collector := &fakeSpecialist{message: "How many people are moving?"}
	advisor := &fakeSpecialist{message: "Pricing depends on the details."}
	companion := &fakeSpecialist{message: "That sounds stressful, take your time."}
	return &fakeRegistry{
		router:    router,
		collector: collector,
		advisor:   advisor,
		companion: companion,
	}, collector, advisor, companion
}

func TestHandleTurnInvalidInput(t *testing.T) {
	t.Parallel()

	registry, _, _, _ := defaultRegistry(&fakeRouter{decisions: []contractx.RouterDecision{{}}})
	o := newTestOrchestrator(t, newFakeStore(), registry)

	if _, err := o.HandleTurn(context.Background(), "  ", "hello", nil); !errors.Is(err, turnnode.ErrInvalidSession) {
		t.Fatalf("error = %v, want ErrInvalidSession", err)
	}
	if _, err := o.HandleTurn(context.Background(), "s1", "   ", nil); !errors.Is(err, turnnode.ErrInvalidMessage) {
		t.Fatalf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestHandleTurnMergesAndDispatchesCollector(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentProvideInfo},
		Emotion: contractx.EmotionNeutral,
		Extractions: []contractx.Extraction{{
			Field:  statex.FieldPartySize,
			Kind:   contractx.ExtractionScalar,
			Scalar: "2",
		}},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
	}}}
	registry, collector, _, _ := defaultRegistry(router)
	store := newFakeStore()
	o := newTestOrchestrator(t, store, registry)

	var streamed strings.Builder
	out, err := o.HandleTurn(context.Background(), "s1", "two of us", func(d string) {
		streamed.WriteString(d)
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out.Message != "How many people are moving?" {
		t.Fatalf("Message = %q", out.Message)
	}
	if streamed.String() != out.Message {
		t.Fatalf("sink got %q", streamed.String())
	}
	if collector.calls != 1 {
		t.Fatalf("collector calls = %d, want 1", collector.calls)
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}

	saved := store.records["s1"]
	if saved == nil {
		t.Fatal("record not saved")
	}
	if saved.PartySize.Count == nil || *saved.PartySize.Count != 2 {
		t.Fatalf("party size not merged: %+v", saved.PartySize)
	}
	if got := saved.StatusOf(statex.FieldPartySize); got != statex.StatusBaseline {
		t.Fatalf("status = %s, want BASELINE", got)
	}
	if len(saved.History) != 2 {
		t.Fatalf("history = %d turns, want user+assistant", len(saved.History))
	}
}

func TestHandleTurnNegativeAffectGoesToCompanionAndStillMerges(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentAnxiety},
		Emotion: contractx.EmotionAnxious,
		Extractions: []contractx.Extraction{{
			Field:  statex.FieldPartySize,
			Kind:   contractx.ExtractionScalar,
			Scalar: "3",
		}},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCompanion},
	}}}
	registry, collector, _, companion := defaultRegistry(router)
	store := newFakeStore()
	o := newTestOrchestrator(t, store, registry)

	out, err := o.HandleTurn(context.Background(), "s1", "three of us... this is so stressful", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if companion.calls != 1 || collector.calls != 0 {
		t.Fatalf("calls companion=%d collector=%d, want 1/0", companion.calls, collector.calls)
	}
	if out.Message != companion.message {
		t.Fatalf("Message = %q", out.Message)
	}

	saved := store.records["s1"]
	if saved.PartySize.Count == nil || *saved.PartySize.Count != 3 {
		t.Fatal("extraction must merge even on an affect turn")
	}
}

func TestHandleTurnRouterFailureFallsBack(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{err: errors.New("upstream 500")}
	registry, collector, _, _ := defaultRegistry(router)
	store := newFakeStore()
	o := newTestOrchestrator(t, store, registry)

	out, err := o.HandleTurn(context.Background(), "s1", "hello there", nil)
	if err != nil {
		t.Fatalf("HandleTurn() must degrade, got error %v", err)
	}
	if collector.calls != 1 {
		t.Fatalf("collector calls = %d, want fallback dispatch", collector.calls)
	}
	if out.Message == "" {
		t.Fatal("expected a reply on fallback")
	}

	// The fallback decision carries the deterministic next field.
	req := collector.lastReqs[0]
	if !req.Decision.Fallback {
		t.Fatal("expected fallback decision")
	}
	if req.Decision.Handoff.SuggestedNextField != statex.FieldPartySize {
		t.Fatalf("SuggestedNextField = %s, want party_size", req.Decision.Handoff.SuggestedNextField)
	}
}

func TestHandleTurnInquiryGoesToAdvisor(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentAskPrice},
		Emotion: contractx.EmotionNeutral,
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistAdvisor},
	}}}
	registry, _, advisor, _ := defaultRegistry(router)
	o := newTestOrchestrator(t, newFakeStore(), registry)

	if _, err := o.HandleTurn(context.Background(), "s1", "how much will it cost?", nil); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if advisor.calls != 1 {
		t.Fatalf("advisor calls = %d, want 1", advisor.calls)
	}
}

func TestHandleTurnStartOverResetsRecord(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{decisions: []contractx.RouterDecision{
		{
			Intent: contractx.Intent{Primary: contractx.IntentProvideInfo},
			Extractions: []contractx.Extraction{{
				Field:  statex.FieldPartySize,
				Kind:   contractx.ExtractionScalar,
				Scalar: "2",
			}},
			Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
		},
		{
			Intent:  contractx.Intent{Primary: contractx.IntentStartOver},
			Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
		},
	}}
	registry, _, _, _ := defaultRegistry(router)
	store := newFakeStore()
	o := newTestOrchestrator(t, store, registry)

	if _, err := o.HandleTurn(context.Background(), "s1", "two people", nil); err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if _, err := o.HandleTurn(context.Background(), "s1", "actually, start over", nil); err != nil {
		t.Fatalf("second turn error = %v", err)
	}

	saved := store.records["s1"]
	if saved.PartySize.Count != nil {
		t.Fatalf("party size survived start over: %+v", saved.PartySize)
	}
}

func TestHandleTurnFinalizeExportsQuote(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	rec := statex.NewFactRecord("s1", time.Now())
	rec.PartySize.Count = intPtr(2)
	rec.Origin.Value = "1-2-3 Jinnan"
	rec.Origin.PostalCode = "150-0041"
	rec.OriginBuildingType.Value = "house"
	rec.Destination.City = "Yokohama"
	rec.Schedule.Year = intPtr(2026)
	rec.Schedule.Month = intPtr(11)
	rec.Schedule.Period = "early"
	rec.Inventory.Items = []statex.Item{{Label: "bed", Count: 1}}
	for _, field := range []statex.FieldID{
		statex.FieldPartySize, statex.FieldOriginAddress, statex.FieldOriginBuildingType,
		statex.FieldDestinationAddress, statex.FieldSchedule, statex.FieldInventory,
	} {
		if err := rec.SetStatus(field, statex.StatusBaseline); err != nil {
			t.Fatalf("seed SetStatus(%s) error = %v", field, err)
		}
	}
	rec.MarkAsked(statex.FieldDestinationFloorAccess)
	rec.MarkAsked(statex.FieldPackingOption)
	rec.MarkAsked(statex.FieldSpecialRequests)
	store.records["s1"] = rec

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentFinalize},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
	}}}
	registry, _, _, _ := defaultRegistry(router)
	quotes := &fakeQuoteSink{}
	o := newTestOrchestrator(t, store, registry, WithQuoteSink(quotes))

	out, err := o.HandleTurn(context.Background(), "s1", "yes, finalize it", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if quotes.submits != 1 {
		t.Fatalf("submits = %d, want 1", quotes.submits)
	}
	if out.Export == nil || !out.Export.Stored || out.Export.QuoteID != "q1" {
		t.Fatalf("Export = %+v", out.Export)
	}
	if saved := store.records["s1"]; !saved.Frozen {
		t.Fatal("record must be frozen after finalize")
	}
}

func TestHandleTurnExportedPhaseTracksSpecialistMutations(t *testing.T) {
	t.Parallel()

	// Everything satisfied except the last advisory field; the
	// specialist asks it mid-turn, so the exported phase and the
	// completion report must both describe the post-turn record.
	store := newFakeStore()
	rec := statex.NewFactRecord("s1", time.Now())
	rec.PartySize.Count = intPtr(2)
	rec.Origin.Value = "1-2-3 Jinnan"
	rec.Origin.PostalCode = "150-0041"
	rec.OriginBuildingType.Value = "house"
	rec.Destination.City = "Yokohama"
	rec.Schedule.Year = intPtr(2026)
	rec.Schedule.Month = intPtr(11)
	rec.Schedule.Period = "early"
	rec.Inventory.Items = []statex.Item{{Label: "bed", Count: 1}}
	for _, field := range []statex.FieldID{
		statex.FieldPartySize, statex.FieldOriginAddress, statex.FieldOriginBuildingType,
		statex.FieldDestinationAddress, statex.FieldSchedule, statex.FieldInventory,
	} {
		if err := rec.SetStatus(field, statex.StatusBaseline); err != nil {
			t.Fatalf("seed SetStatus(%s) error = %v", field, err)
		}
	}
	rec.MarkAsked(statex.FieldDestinationFloorAccess)
	rec.MarkAsked(statex.FieldPackingOption)
	store.records["s1"] = rec

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentProvideInfo},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
	}}}
	registry, collector, _, _ := defaultRegistry(router)
	collector.mutate = func(r *statex.FactRecord) {
		r.MarkAsked(statex.FieldSpecialRequests)
	}
	o := newTestOrchestrator(t, store, registry)

	out, err := o.HandleTurn(context.Background(), "s1", "nothing fragile, no", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out.Phase != phasex.Confirmation {
		t.Fatalf("Phase = %s, want CONFIRMATION", out.Phase)
	}
	if !out.Completion.CanFinalize {
		t.Fatal("completion must allow finalization")
	}
	if out.Completion.CanFinalize != (out.Phase == phasex.Confirmation) {
		t.Fatal("exported phase and completion disagree")
	}
}

func TestHandleTurnFinalizeFailureDegradesToInMemoryExport(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	rec := statex.NewFactRecord("s1", time.Now())
	rec.PartySize.Count = intPtr(2)
	rec.Origin.PostalCode = "150-0041"
	rec.OriginBuildingType.Value = "house"
	rec.Destination.City = "Yokohama"
	rec.Schedule.Year = intPtr(2026)
	rec.Schedule.Month = intPtr(11)
	rec.Schedule.Period = "early"
	rec.Inventory.Items = []statex.Item{{Label: "bed", Count: 1}}
	for _, field := range []statex.FieldID{
		statex.FieldPartySize, statex.FieldOriginAddress, statex.FieldOriginBuildingType,
		statex.FieldDestinationAddress, statex.FieldSchedule, statex.FieldInventory,
	} {
		if err := rec.SetStatus(field, statex.StatusBaseline); err != nil {
			t.Fatalf("seed SetStatus(%s) error = %v", field, err)
		}
	}
	rec.MarkAsked(statex.FieldDestinationFloorAccess)
	rec.MarkAsked(statex.FieldPackingOption)
	rec.MarkAsked(statex.FieldSpecialRequests)
	store.records["s1"] = rec

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentFinalize},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
	}}}
	registry, _, _, _ := defaultRegistry(router)
	quotes := &fakeQuoteSink{err: errors.New("pg down")}
	o := newTestOrchestrator(t, store, registry, WithQuoteSink(quotes))

	out, err := o.HandleTurn(context.Background(), "s1", "finalize please", nil)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out.Export == nil || out.Export.Stored {
		t.Fatalf("Export = %+v, want in-memory degraded export", out.Export)
	}
}

func TestHandleTurnSerializesSameSession(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentProvideInfo},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
	}}}
	collector := &fakeSpecialist{message: "next question", block: make(chan struct{})}
	registry := &fakeRegistry{
		router:    router,
		collector: collector,
		advisor:   &fakeSpecialist{message: "a"},
		companion: &fakeSpecialist{message: "b"},
	}
	store := newFakeStore()
	o := newTestOrchestrator(t, store, registry)

	done := make(chan struct{}, 2)
	go func() {
		_, _ = o.HandleTurn(context.Background(), "s1", "first", nil)
		done <- struct{}{}
	}()

	// Wait until the first turn is inside the blocked specialist.
	deadline := time.After(2 * time.Second)
	for {
		collector.mu.Lock()
		started := collector.calls == 1
		collector.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first turn never reached the specialist")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	go func() {
		_, _ = o.HandleTurn(context.Background(), "s1", "second", nil)
		done <- struct{}{}
	}()

	// The second turn must not reach the specialist while the first
	// holds the session.
	time.Sleep(50 * time.Millisecond)
	collector.mu.Lock()
	calls := collector.calls
	collector.mu.Unlock()
	if calls != 1 {
		t.Fatalf("second turn entered concurrently: calls = %d", calls)
	}

	close(collector.block)
	<-done
	<-done

	if store.saves != 2 {
		t.Fatalf("saves = %d, want 2", store.saves)
	}
}

func TestHandleTurnSurvivesCallerDisconnect(t *testing.T) {
	t.Parallel()

	router := &fakeRouter{decisions: []contractx.RouterDecision{{
		Intent:  contractx.Intent{Primary: contractx.IntentProvideInfo},
		Handoff: contractx.Handoff{Specialist: contractx.SpecialistCollector},
	}}}
	registry, _, _, _ := defaultRegistry(router)
	store := newFakeStore()
	o := newTestOrchestrator(t, store, registry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var streamed strings.Builder
	out, err := o.HandleTurn(ctx, "s1", "two people", func(d string) {
		streamed.WriteString(d)
	})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v, turn must outlive the caller", err)
	}
	if out.Message == "" {
		t.Fatal("expected a completed turn")
	}
	if streamed.Len() != 0 {
		t.Fatalf("sink received %q after disconnect", streamed.String())
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, record must persist after disconnect", store.saves)
	}
}

func TestRecognizeItemsRequiresRecognizer(t *testing.T) {
	t.Parallel()

	registry, _, _, _ := defaultRegistry(&fakeRouter{decisions: []contractx.RouterDecision{{}}})
	o := newTestOrchestrator(t, newFakeStore(), registry)

	if _, err := o.RecognizeItems(context.Background(), "s1", []byte("img")); err == nil {
		t.Fatal("expected error without a configured recognizer")
	}
}
