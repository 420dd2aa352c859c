package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	itemsx "github.com/erabu-ai/agentcore/agent/items"
	turnnode "github.com/erabu-ai/agentcore/agent/nodes"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

// Orchestrator drives one conversation turn end to end: load the
// session record, route, merge extractions, dispatch a specialist,
// persist, and shape the client-facing output.
type Orchestrator struct {
	store    statex.Store
	models   contractx.Registry
	verifier contractx.AddressVerifier
	quotes   contractx.QuoteSink
	items    contractx.ItemRecognizer

	turnRunner compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput]

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

type Option func(*Orchestrator)

// WithAddressVerifier enables external address verification during
// extraction merge. Without it addresses merge as-is.
func WithAddressVerifier(v contractx.AddressVerifier) Option {
	return func(o *Orchestrator) { o.verifier = v }
}

// WithQuoteSink enables quote export on finalize. Without it finalize
// confirmation still works but nothing is exported.
func WithQuoteSink(q contractx.QuoteSink) Option {
	return func(o *Orchestrator) { o.quotes = q }
}

// WithItemRecognizer enables image-based inventory recognition.
func WithItemRecognizer(r contractx.ItemRecognizer) Option {
	return func(o *Orchestrator) { o.items = r }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(ctx context.Context, store statex.Store, models contractx.Registry, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("orchestrator: store is required")
	}
	if models == nil {
		return nil, fmt.Errorf("orchestrator: model registry is required")
	}

	o := &Orchestrator{
		store:    store,
		models:   models,
		now:      time.Now,
		sessions: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}

	runner, err := o.compileHandleTurnGraph(ctx)
	if err != nil {
		return nil, err
	}
	o.turnRunner = runner
	return o, nil
}

// HandleTurn processes one user message for a session. Turns for the
// same session are serialized so the record has a single writer;
// different sessions proceed concurrently.
//
// The turn keeps running to completion even if ctx is cancelled
// mid-stream: the record update and save still happen, only the sink
// stops receiving deltas.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string, sink contractx.DeltaSink) (turnnode.GraphOutput, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	runCtx := context.WithoutCancel(ctx)

	out, err := o.turnRunner.Invoke(runCtx, turnnode.GraphInput{
		SessionID: sessionID,
		Text:      text,
		Sink:      guardSink(ctx, sink),
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		return turnnode.GraphOutput{}, err
	}
	return out, nil
}

// RecognizeItems runs image recognition for inventory intake and
// returns the recognized items for client-side confirmation. Nothing
// is merged into the record until ConfirmItems is called.
func (o *Orchestrator) RecognizeItems(ctx context.Context, sessionID string, image []byte) ([]statex.Item, error) {
	if o.items == nil {
		return nil, fmt.Errorf("orchestrator: item recognizer not configured")
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", contractx.ErrValidation)
	}

	recognized, err := o.items.Recognize(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("recognize items: %w", err)
	}
	for i := range recognized {
		recognized[i] = itemsx.Enrich(recognized[i])
	}
	return recognized, nil
}

// ConfirmItems merges the user-accepted subset of recognized items
// into the session inventory through the normal turn pipeline, so the
// same validation and phase rules apply.
func (o *Orchestrator) ConfirmItems(ctx context.Context, sessionID string, recognized []statex.Item, accepted []string, sink contractx.DeltaSink) (turnnode.GraphOutput, error) {
	chosen := itemsx.ConfirmSubset(recognized, accepted)
	if len(chosen) == 0 {
		return turnnode.GraphOutput{}, fmt.Errorf("%w: no items accepted", contractx.ErrValidation)
	}

	labels := make([]string, 0, len(chosen))
	for _, it := range chosen {
		labels = append(labels, it.Label)
	}
	text := "I have: " + strings.Join(labels, ", ")
	return o.HandleTurn(ctx, sessionID, text, sink)
}

// Reset drops the stored record for a session.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	return o.store.Delete(ctx, sessionID)
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.sessions[sessionID] = lock
	}
	return lock
}

// guardSink stops delta delivery once the caller's context is done
// while the turn itself keeps running.
func guardSink(ctx context.Context, sink contractx.DeltaSink) contractx.DeltaSink {
	if sink == nil {
		return nil
	}
	return func(delta string) {
		if ctx.Err() != nil {
			return
		}
		sink(delta)
	}
}
