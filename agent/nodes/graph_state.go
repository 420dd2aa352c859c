package turnnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
	statex "github.com/erabu-ai/agentcore/agent/state"
	validatex "github.com/erabu-ai/agentcore/agent/validate"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Text      string
	Sink      contractx.DeltaSink
}

// GraphOutput is what one turn exports to the transport layer.
type GraphOutput struct {
	Message      string
	Phase        phasex.Phase
	Completion   phasex.Report
	NextField    statex.FieldID
	QuickReplies []string
	UIHint       string
	NeedsConfirm bool
	Export       *contractx.QuoteExport
}

// GraphState is threaded through the turn pipeline. The record inside
// is a working copy owned exclusively by this turn.
type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time
	Sink      contractx.DeltaSink

	Record       *statex.FactRecord
	Decision     contractx.RouterDecision
	MergeResults []validatex.Result
	Phase        phasex.Phase
	Result       contractx.SpecialistResult
	Export       *contractx.QuoteExport
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
		Sink:      in.Sink,
	}, nil
}
