package validate

import (
	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

// ApplyIntent runs the deterministic transition rules a task-control
// intent triggers on top of the merged extractions. target is the field
// the turn is about (verification override, then router suggestion,
// then phase order); rules that need one use it.
func ApplyIntent(rec *statex.FactRecord, intent contractx.IntentType, target statex.FieldID) []Result {
	if rec == nil {
		return nil
	}

	switch intent {
	case contractx.IntentConfirm:
		return confirmPending(rec)
	case contractx.IntentReject:
		return rejectPending(rec, target)
	case contractx.IntentSkip:
		return skipField(rec, target)
	case contractx.IntentComplete:
		return completeList(rec, target)
	}
	return nil
}

// confirmPending promotes every verification-pending slot whose red line
// already holds. Confirmation never bypasses the red line itself.
func confirmPending(rec *statex.FactRecord) []Result {
	var results []Result
	for _, field := range []statex.FieldID{statex.FieldOriginAddress, statex.FieldDestinationAddress} {
		if rec.StatusOf(field) != statex.StatusNeedsVerification {
			continue
		}
		if !rec.BaselineReady(field) {
			results = append(results, reject(field, "confirmed address still misses its required attributes"))
			continue
		}
		if err := rec.SetStatus(field, statex.StatusBaseline); err != nil {
			results = append(results, reject(field, err.Error()))
			continue
		}
		results = append(results, Result{OK: true, Field: field, Status: statex.StatusBaseline})
	}
	return results
}

// rejectPending resets the slot the user disowned. A pending
// verification wins over the suggested target.
func rejectPending(rec *statex.FactRecord, target statex.FieldID) []Result {
	field := target
	for _, candidate := range []statex.FieldID{statex.FieldOriginAddress, statex.FieldDestinationAddress} {
		if rec.StatusOf(candidate) == statex.StatusNeedsVerification {
			field = candidate
			break
		}
	}
	if !field.Valid() {
		return nil
	}
	if err := rec.ResetField(field); err != nil {
		return []Result{reject(field, err.Error())}
	}
	return []Result{{OK: true, Field: field, Status: statex.StatusNotStarted}}
}

func skipField(rec *statex.FactRecord, target statex.FieldID) []Result {
	if !target.Valid() {
		return nil
	}
	if err := rec.MarkSkipped(target); err != nil {
		return []Result{reject(target, err.Error())}
	}
	return []Result{{OK: true, Field: target, Status: statex.StatusSkipped}}
}

// completeList closes a list field. Closing an empty inventory stays
// invalid; closing special requests is always allowed.
func completeList(rec *statex.FactRecord, target statex.FieldID) []Result {
	switch target {
	case statex.FieldInventory:
		if len(rec.Inventory.Items) == 0 {
			return []Result{reject(target, "cannot close an empty inventory")}
		}
		rec.Inventory.Done = true
		return []Result{promote(rec, target, statex.StatusIdeal)}
	case statex.FieldSpecialRequests:
		rec.Requests.Done = true
		return []Result{promote(rec, target, statex.StatusBaseline)}
	}
	return nil
}
