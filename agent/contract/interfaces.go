package contract

import (
	"context"

	statex "github.com/erabu-ai/agentcore/agent/state"
)

type Router interface {
	Route(ctx context.Context, req RouteRequest) (RouterDecision, error)
}

type Specialist interface {
	Respond(ctx context.Context, req SpecialistRequest) (SpecialistResult, error)
}

type Registry interface {
	Router() Router
	Collector() Specialist
	Advisor() Specialist
	Companion() Specialist
}

type AddressVerifier interface {
	Verify(ctx context.Context, text string) (AddressVerification, error)
}

type ItemRecognizer interface {
	Recognize(ctx context.Context, image []byte) ([]statex.Item, error)
}

type QuoteSink interface {
	Submit(ctx context.Context, rec *statex.FactRecord) (QuoteExport, error)
}
