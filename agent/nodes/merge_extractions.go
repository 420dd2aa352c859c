package turnnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	phasex "github.com/erabu-ai/agentcore/agent/phase"
	statex "github.com/erabu-ai/agentcore/agent/state"
	validatex "github.com/erabu-ai/agentcore/agent/validate"
)

// MergeExtractions pushes every proposed extraction through the
// validator and then runs the deterministic intent rules. Invalid
// extractions are logged and dropped; the turn continues regardless.
func MergeExtractions(ctx context.Context, in *GraphState, verifier contractx.AddressVerifier) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph record is nil", contractx.ErrValidation)
	}

	exts := in.Decision.Extractions
	for i := range exts {
		enrichAddress(ctx, &exts[i], verifier, in.SessionID)
	}

	in.MergeResults = validatex.MergeAll(in.Record, exts)
	for _, res := range in.MergeResults {
		if !res.OK {
			log.Debug().Str("session_id", in.SessionID).Str("field", string(res.Field)).
				Str("reason", res.Message).Msg("extraction rejected")
		}
	}

	if family := in.Decision.Intent.Primary.Family(); family == contractx.FamilyTaskControl {
		target := intentTarget(in.Decision, in.Record)
		results := validatex.ApplyIntent(in.Record, in.Decision.Intent.Primary, target)
		in.MergeResults = append(in.MergeResults, results...)
	}

	return in, nil
}

// enrichAddress runs the verification collaborator over an address
// extraction. Best-effort: any failure leaves the raw extraction as-is.
func enrichAddress(ctx context.Context, ext *contractx.Extraction, verifier contractx.AddressVerifier, sessionID string) {
	if verifier == nil || ext.Kind != contractx.ExtractionAddress || ext.Address == nil {
		return
	}
	query := strings.TrimSpace(ext.Address.Value)
	if query == "" {
		query = strings.TrimSpace(ext.RawText)
	}
	if query == "" {
		return
	}

	verification, err := verifier.Verify(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("field", string(ext.Field)).
			Msg("address verification unavailable, merging raw extraction")
		return
	}

	switch verification.Status {
	case contractx.VerifyVerified:
		mergeNormalized(ext.Address, verification.Normalized)
		// Verified but not yet confirmed by the user needs one more
		// round-trip before the slot may reach BASELINE.
		if !verification.Confirmed {
			ext.NeedsVerification = true
		}
	case contractx.VerifyNeedsSelection:
		ext.NeedsVerification = true
	case contractx.VerifyNeedsMoreInfo, contractx.VerifyFailed:
		// Keep the partial extraction; the collector will ask for more.
	}
}

func mergeNormalized(patch *statex.AddressPatch, normalized statex.AddressPatch) {
	if patch.Value == "" {
		patch.Value = normalized.Value
	}
	if patch.PostalCode == "" {
		patch.PostalCode = normalized.PostalCode
	}
	if patch.Prefecture == "" {
		patch.Prefecture = normalized.Prefecture
	}
	if patch.City == "" {
		patch.City = normalized.City
	}
	if patch.District == "" {
		patch.District = normalized.District
	}
}

// intentTarget resolves which field a task-control intent acts on:
// pending verification first, then the router's suggestion, then the
// phase engine's next field.
func intentTarget(decision contractx.RouterDecision, rec *statex.FactRecord) statex.FieldID {
	for _, field := range []statex.FieldID{statex.FieldOriginAddress, statex.FieldDestinationAddress} {
		if rec.StatusOf(field) == statex.StatusNeedsVerification {
			return field
		}
	}
	if suggested := decision.Handoff.SuggestedNextField; suggested.Valid() {
		return suggested
	}
	if next, ok := phasex.NextRequiredField(rec); ok {
		return next
	}
	return ""
}
