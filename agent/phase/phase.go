// Package phase derives the canonical collection stage from the fact
// record alone. The router's phase opinion is advisory; everything
// exported to callers comes from here.
package phase

import (
	statex "github.com/erabu-ai/agentcore/agent/state"
)

type Phase string

const (
	Opening      Phase = "OPENING"
	PartySize    Phase = "PARTY_SIZE"
	Route        Phase = "ROUTE"
	Schedule     Phase = "SCHEDULE"
	Inventory    Phase = "INVENTORY"
	Logistics    Phase = "LOGISTICS"
	Confirmation Phase = "CONFIRMATION"
)

// All returns the linear phase order. There are no backward transitions
// except an explicit record reset.
func All() []Phase {
	return []Phase{Opening, PartySize, Route, Schedule, Inventory, Logistics, Confirmation}
}

func Valid(p Phase) bool {
	for _, known := range All() {
		if p == known {
			return true
		}
	}
	return false
}

// requirement describes one field's completion predicate within a phase.
type requirement struct {
	field    statex.FieldID
	advisory bool
	// applies gates conditional ownership; nil means always owned.
	applies func(rec *statex.FactRecord) bool
}

func (q requirement) met(rec *statex.FactRecord) bool {
	if q.applies != nil && !q.applies(rec) {
		return true
	}
	st := rec.StatusOf(q.field)
	if q.advisory {
		return st.AskedOrBetter()
	}
	return st.Complete()
}

// originMultiUnit reports whether the origin building requires floor and
// room questions. An unknown or skipped building type defers them.
func originMultiUnit(rec *statex.FactRecord) bool {
	return statex.IsMultiUnit(rec.OriginBuildingType.Value)
}

// requirementsFor lists the fields owned by each collecting phase.
func requirementsFor(p Phase) []requirement {
	switch p {
	case PartySize:
		return []requirement{
			{field: statex.FieldPartySize},
		}
	case Route:
		return []requirement{
			{field: statex.FieldOriginAddress},
			{field: statex.FieldOriginBuildingType},
			{field: statex.FieldOriginRoomType, applies: originMultiUnit},
			{field: statex.FieldDestinationAddress},
		}
	case Schedule:
		return []requirement{
			{field: statex.FieldSchedule},
		}
	case Inventory:
		return []requirement{
			{field: statex.FieldInventory},
		}
	case Logistics:
		return []requirement{
			{field: statex.FieldOriginFloorAccess, applies: originMultiUnit},
			{field: statex.FieldDestinationFloorAccess, advisory: true},
			{field: statex.FieldPackingOption, advisory: true},
			{field: statex.FieldSpecialRequests, advisory: true},
		}
	}
	return nil
}

// Of computes the canonical phase. Pure: repeated calls on an unchanged
// record return the same phase.
func Of(rec *statex.FactRecord) Phase {
	if rec == nil || rec.Untouched() {
		return Opening
	}
	for _, p := range []Phase{PartySize, Route, Schedule, Inventory, Logistics} {
		for _, q := range requirementsFor(p) {
			if !q.met(rec) {
				return p
			}
		}
	}
	return Confirmation
}

// priority is the fixed asking order across phases.
func priority(rec *statex.FactRecord) []requirement {
	return []requirement{
		{field: statex.FieldPartySize},
		{field: statex.FieldOriginAddress},
		{field: statex.FieldOriginBuildingType},
		{field: statex.FieldOriginRoomType, applies: originMultiUnit},
		{field: statex.FieldDestinationAddress},
		{field: statex.FieldSchedule},
		{field: statex.FieldInventory},
		{field: statex.FieldOriginFloorAccess, applies: originMultiUnit},
		{field: statex.FieldDestinationFloorAccess, advisory: true},
		{field: statex.FieldPackingOption, advisory: true},
		{field: statex.FieldSpecialRequests, advisory: true},
	}
}

// NextRequiredField returns the first unmet field in priority order.
// ok is false when every field is satisfied.
func NextRequiredField(rec *statex.FactRecord) (statex.FieldID, bool) {
	if rec == nil {
		return statex.FieldPartySize, true
	}
	for _, q := range priority(rec) {
		if !q.met(rec) {
			return q.field, true
		}
	}
	return "", false
}

// Report summarizes collection progress for callers.
type Report struct {
	CanFinalize bool             `json:"can_finalize"`
	Fraction    float64          `json:"fraction_complete"`
	Missing     []statex.FieldID `json:"missing_field_ids,omitempty"`
	Next        statex.FieldID   `json:"next_required_field,omitempty"`
}

// Completion builds the progress report. CanFinalize holds exactly when
// the phase is CONFIRMATION.
func Completion(rec *statex.FactRecord) Report {
	var report Report
	if rec == nil {
		report.Next = statex.FieldPartySize
		report.Missing = statex.AllFields()
		return report
	}

	reqs := priority(rec)
	applicable := 0
	done := 0
	for _, q := range reqs {
		if q.applies != nil && !q.applies(rec) {
			continue
		}
		applicable++
		if q.met(rec) {
			done++
			continue
		}
		report.Missing = append(report.Missing, q.field)
	}
	if applicable > 0 {
		report.Fraction = float64(done) / float64(applicable)
	}
	if next, ok := NextRequiredField(rec); ok {
		report.Next = next
	}
	report.CanFinalize = Of(rec) == Confirmation
	return report
}
