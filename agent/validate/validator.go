// Package validate enforces the per-field promotion rules. Extractions
// from the router pass through here before they may touch the record;
// an invalid extraction leaves its slot unchanged and never aborts the
// turn.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

const (
	maxPartySize = 20
	minYear      = 2000
	maxYear      = 2100
)

// Result reports one validation outcome.
type Result struct {
	OK      bool
	Field   statex.FieldID
	Status  statex.Status
	Message string
}

// Validate checks an extraction against the current record without
// mutating it.
func Validate(ext contractx.Extraction, rec *statex.FactRecord) Result {
	if rec == nil {
		return reject(ext.Field, "nil record")
	}
	scratch := rec.Clone()
	return Apply(scratch, ext)
}

// Apply merges one extraction into rec. Callers pass a clone and commit
// only after the whole turn validates. On a rejected extraction rec is
// left exactly as it was.
func Apply(rec *statex.FactRecord, ext contractx.Extraction) Result {
	if rec == nil {
		return reject(ext.Field, "nil record")
	}
	if !ext.Field.Valid() {
		return reject(ext.Field, fmt.Sprintf("unknown field %q", ext.Field))
	}

	switch ext.Field {
	case statex.FieldPartySize:
		return applyPartySize(rec, ext)
	case statex.FieldOriginAddress, statex.FieldDestinationAddress:
		return applyAddress(rec, ext)
	case statex.FieldSchedule:
		return applySchedule(rec, ext)
	case statex.FieldInventory:
		return applyInventory(rec, ext)
	case statex.FieldOriginBuildingType, statex.FieldOriginRoomType, statex.FieldPackingOption:
		return applyChoice(rec, ext)
	case statex.FieldOriginFloorAccess, statex.FieldDestinationFloorAccess:
		return applyAccess(rec, ext)
	case statex.FieldSpecialRequests:
		return applyRequests(rec, ext)
	}
	return reject(ext.Field, "unhandled field")
}

// MergeAll applies every extraction of one turn. Invalid ones are
// reported but never stop the rest.
func MergeAll(rec *statex.FactRecord, exts []contractx.Extraction) []Result {
	results := make([]Result, 0, len(exts))
	for _, ext := range exts {
		results = append(results, Apply(rec, ext))
	}
	return results
}

func applyPartySize(rec *statex.FactRecord, ext contractx.Extraction) Result {
	raw := strings.TrimSpace(ext.Scalar)
	count, err := strconv.Atoi(raw)
	if err != nil {
		return reject(ext.Field, fmt.Sprintf("party size %q is not an integer", raw))
	}
	if count <= 0 || count > maxPartySize {
		return reject(ext.Field, fmt.Sprintf("party size %d out of range", count))
	}

	rec.PartySize.Count = &count
	if ext.RawText != "" {
		rec.PartySize.Raw = ext.RawText
	} else {
		rec.PartySize.Raw = raw
	}
	return promote(rec, ext.Field, statex.StatusBaseline)
}

func applyAddress(rec *statex.FactRecord, ext contractx.Extraction) Result {
	patch := ext.Address
	if patch == nil {
		return reject(ext.Field, "address extraction without patch")
	}
	if emptyAddressPatch(patch) {
		return reject(ext.Field, "empty address patch")
	}

	slot := &rec.Origin
	if ext.Field == statex.FieldDestinationAddress {
		slot = &rec.Destination
	}

	// Additive merge: a new sub-attribute never replaces a longer
	// resolved string with a shorter one.
	slot.Value = mergeLonger(slot.Value, patch.Value)
	slot.PostalCode = mergeIfEmpty(slot.PostalCode, patch.PostalCode)
	slot.Prefecture = mergeIfEmpty(slot.Prefecture, patch.Prefecture)
	slot.City = mergeIfEmpty(slot.City, patch.City)
	slot.District = mergeIfEmpty(slot.District, patch.District)

	// Building attributes volunteered with the origin address land in
	// their own slots.
	if ext.Field == statex.FieldOriginAddress {
		if v := strings.TrimSpace(patch.BuildingType); v != "" && rec.OriginBuildingType.Value == "" {
			rec.OriginBuildingType.Value = v
			rec.OriginBuildingType.Status = statex.StatusBaseline
		}
		if v := strings.TrimSpace(patch.RoomType); v != "" && rec.OriginRoomType.Value == "" {
			rec.OriginRoomType.Value = v
			rec.OriginRoomType.Status = statex.StatusBaseline
		}
	}

	target := statex.StatusInProgress
	if rec.BaselineReady(ext.Field) {
		target = statex.StatusBaseline
		if ext.NeedsVerification {
			target = statex.StatusNeedsVerification
		} else if addressIdeal(slot) {
			target = statex.StatusIdeal
		}
	}
	return promote(rec, ext.Field, target)
}

func applySchedule(rec *statex.FactRecord, ext contractx.Extraction) Result {
	patch := ext.Schedule
	if patch == nil {
		return reject(ext.Field, "schedule extraction without patch")
	}
	if patch.Year != nil && (*patch.Year < minYear || *patch.Year > maxYear) {
		return reject(ext.Field, fmt.Sprintf("year %d out of range", *patch.Year))
	}
	if patch.Month != nil && (*patch.Month < 1 || *patch.Month > 12) {
		return reject(ext.Field, fmt.Sprintf("month %d out of range", *patch.Month))
	}
	if patch.Day != nil && (*patch.Day < 1 || *patch.Day > 31) {
		return reject(ext.Field, fmt.Sprintf("day %d out of range", *patch.Day))
	}
	if emptySchedulePatch(patch) {
		return reject(ext.Field, "empty schedule patch")
	}

	slot := &rec.Schedule
	slot.Value = mergeLonger(slot.Value, patch.Value)
	if slot.Year == nil && patch.Year != nil {
		y := *patch.Year
		slot.Year = &y
	}
	if slot.Month == nil && patch.Month != nil {
		m := *patch.Month
		slot.Month = &m
	}
	if slot.Day == nil && patch.Day != nil {
		d := *patch.Day
		slot.Day = &d
	}
	slot.Period = mergeIfEmpty(slot.Period, patch.Period)
	slot.TimeSlot = mergeIfEmpty(slot.TimeSlot, patch.TimeSlot)

	target := statex.StatusInProgress
	if rec.BaselineReady(ext.Field) {
		target = statex.StatusBaseline
		if slot.Day != nil && slot.TimeSlot != "" {
			target = statex.StatusIdeal
		}
	}
	return promote(rec, ext.Field, target)
}

func applyInventory(rec *statex.FactRecord, ext contractx.Extraction) Result {
	noMore := strings.TrimSpace(ext.Scalar) == statex.NoMoreToken

	// A bare "no more" on an empty list does not satisfy the rule that
	// at least one item must exist before the field counts as collected.
	if len(ext.Items) == 0 && !noMore {
		return reject(ext.Field, "inventory extraction without items")
	}
	if noMore && len(ext.Items) == 0 && len(rec.Inventory.Items) == 0 {
		return reject(ext.Field, "cannot close an empty inventory")
	}

	for _, item := range ext.Items {
		label := strings.TrimSpace(item.Label)
		if label == "" {
			continue
		}
		if hasItem(rec.Inventory.Items, label) {
			continue
		}
		item.Label = label
		if item.Count <= 0 {
			item.Count = 1
		}
		rec.Inventory.Items = append(rec.Inventory.Items, item)
	}
	if noMore {
		rec.Inventory.Done = true
	}

	target := statex.StatusInProgress
	if rec.BaselineReady(statex.FieldInventory) {
		target = statex.StatusBaseline
		if rec.Inventory.Done {
			target = statex.StatusIdeal
		}
	}
	return promote(rec, ext.Field, target)
}

func applyChoice(rec *statex.FactRecord, ext contractx.Extraction) Result {
	value := strings.TrimSpace(ext.Scalar)
	if value == "" {
		return reject(ext.Field, "empty choice value")
	}

	switch ext.Field {
	case statex.FieldOriginBuildingType:
		rec.OriginBuildingType.Value = value
	case statex.FieldOriginRoomType:
		rec.OriginRoomType.Value = value
	case statex.FieldPackingOption:
		rec.Packing.Value = value
	}
	return promote(rec, ext.Field, statex.StatusBaseline)
}

func applyAccess(rec *statex.FactRecord, ext contractx.Extraction) Result {
	patch := ext.Access
	if patch == nil {
		return reject(ext.Field, "access extraction without patch")
	}
	if patch.Floor == nil && patch.HasElevator == nil {
		return reject(ext.Field, "empty access patch")
	}
	if patch.Floor != nil && *patch.Floor < 1 {
		return reject(ext.Field, fmt.Sprintf("floor %d out of range", *patch.Floor))
	}

	slot := &rec.OriginAccess
	if ext.Field == statex.FieldDestinationFloorAccess {
		slot = &rec.DestinationAccess
	}
	if slot.Floor == nil && patch.Floor != nil {
		f := *patch.Floor
		slot.Floor = &f
	}
	if slot.HasElevator == nil && patch.HasElevator != nil {
		e := *patch.HasElevator
		slot.HasElevator = &e
	}

	target := statex.StatusInProgress
	if rec.BaselineReady(ext.Field) {
		target = statex.StatusBaseline
		if slot.HasElevator != nil {
			target = statex.StatusIdeal
		}
	}
	return promote(rec, ext.Field, target)
}

func applyRequests(rec *statex.FactRecord, ext contractx.Extraction) Result {
	entries := make([]string, 0, len(ext.Entries))
	done := strings.TrimSpace(ext.Scalar) == statex.NoMoreToken
	for _, e := range ext.Entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if e == statex.NoMoreToken {
			done = true
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 && !done {
		return reject(ext.Field, "empty special requests extraction")
	}

	for _, e := range entries {
		if !hasEntry(rec.Requests.Entries, e) {
			rec.Requests.Entries = append(rec.Requests.Entries, e)
		}
	}
	if done {
		rec.Requests.Done = true
	}
	return promote(rec, ext.Field, statex.StatusBaseline)
}

// promote moves the field forward but never backward: a computed status
// below the current one keeps the current one.
func promote(rec *statex.FactRecord, field statex.FieldID, target statex.Status) Result {
	current := rec.StatusOf(field)
	if !current.CanAdvanceTo(target) {
		target = current
	}
	if err := rec.SetStatus(field, target); err != nil {
		return reject(field, err.Error())
	}
	return Result{OK: true, Field: field, Status: rec.StatusOf(field)}
}

func reject(field statex.FieldID, msg string) Result {
	return Result{OK: false, Field: field, Message: msg}
}

func addressIdeal(slot *statex.AddressSlot) bool {
	return slot.Value != "" && slot.PostalCode != "" && slot.City != ""
}

func mergeLonger(existing, proposed string) string {
	proposed = strings.TrimSpace(proposed)
	if len(proposed) > len(strings.TrimSpace(existing)) {
		return proposed
	}
	return existing
}

func mergeIfEmpty(existing, proposed string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return strings.TrimSpace(proposed)
}

func emptyAddressPatch(p *statex.AddressPatch) bool {
	return strings.TrimSpace(p.Value) == "" &&
		strings.TrimSpace(p.PostalCode) == "" &&
		strings.TrimSpace(p.Prefecture) == "" &&
		strings.TrimSpace(p.City) == "" &&
		strings.TrimSpace(p.District) == "" &&
		strings.TrimSpace(p.BuildingType) == "" &&
		strings.TrimSpace(p.RoomType) == ""
}

func emptySchedulePatch(p *statex.SchedulePatch) bool {
	return strings.TrimSpace(p.Value) == "" &&
		p.Year == nil && p.Month == nil && p.Day == nil &&
		strings.TrimSpace(p.Period) == "" &&
		strings.TrimSpace(p.TimeSlot) == ""
}

func hasItem(items []statex.Item, label string) bool {
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Label), label) {
			return true
		}
	}
	return false
}

func hasEntry(entries []string, entry string) bool {
	for _, e := range entries {
		if strings.EqualFold(e, entry) {
			return true
		}
	}
	return false
}
