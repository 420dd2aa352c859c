package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvariantViolation = errors.New("field status violates its promotion rule")
	ErrUnknownField       = errors.New("unknown field id")
)

// FieldID identifies one collectable fact in the record.
type FieldID string

const (
	FieldPartySize              FieldID = "party_size"
	FieldOriginAddress          FieldID = "origin_address"
	FieldDestinationAddress     FieldID = "destination_address"
	FieldSchedule               FieldID = "schedule"
	FieldInventory              FieldID = "inventory"
	FieldOriginBuildingType     FieldID = "origin_building_type"
	FieldOriginRoomType         FieldID = "origin_room_type"
	FieldOriginFloorAccess      FieldID = "origin_floor_access"
	FieldDestinationFloorAccess FieldID = "destination_floor_access"
	FieldPackingOption          FieldID = "packing_option"
	FieldSpecialRequests        FieldID = "special_requests"
)

// AllFields returns every field id in collection priority order.
func AllFields() []FieldID {
	return []FieldID{
		FieldPartySize,
		FieldOriginAddress,
		FieldOriginBuildingType,
		FieldOriginRoomType,
		FieldDestinationAddress,
		FieldSchedule,
		FieldInventory,
		FieldOriginFloorAccess,
		FieldDestinationFloorAccess,
		FieldPackingOption,
		FieldSpecialRequests,
	}
}

func (f FieldID) Valid() bool {
	switch f {
	case FieldPartySize, FieldOriginAddress, FieldDestinationAddress,
		FieldSchedule, FieldInventory, FieldOriginBuildingType,
		FieldOriginRoomType, FieldOriginFloorAccess,
		FieldDestinationFloorAccess, FieldPackingOption, FieldSpecialRequests:
		return true
	}
	return false
}

// Status tags how far a field has progressed.
// Transitions are monotonic forward except explicit correction (reset)
// and explicit skip.
type Status string

const (
	StatusNotStarted        Status = "NOT_STARTED"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusNeedsVerification Status = "NEEDS_VERIFICATION"
	StatusBaseline          Status = "BASELINE"
	StatusIdeal             Status = "IDEAL"
	StatusSkipped           Status = "SKIPPED"
	StatusAsked             Status = "ASKED"
)

// AtLeastBaseline reports whether the field counts as reliably collected.
func (s Status) AtLeastBaseline() bool {
	return s == StatusBaseline || s == StatusIdeal
}

// Complete reports whether a mandatory field no longer blocks phase advance.
func (s Status) Complete() bool {
	return s == StatusBaseline || s == StatusIdeal || s == StatusSkipped
}

// AskedOrBetter reports whether an advisory field no longer blocks phase advance.
func (s Status) AskedOrBetter() bool {
	return s == StatusAsked || s.Complete()
}

// rank orders statuses for monotonicity checks. SKIPPED and ASKED sit
// outside the main ladder and are handled explicitly by the validator.
func (s Status) rank() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusAsked:
		return 1
	case StatusInProgress:
		return 2
	case StatusNeedsVerification:
		return 3
	case StatusBaseline:
		return 4
	case StatusIdeal:
		return 5
	case StatusSkipped:
		return 6
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next keeps the forward
// discipline. Reset to NOT_STARTED is always a separate explicit path.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.rank() >= s.rank()
}

// NoMoreToken is the well-known terminal signal for list fields. It flips
// the Done flag instead of becoming content.
const NoMoreToken = "no_more"

var multiUnitBuildingTypes = map[string]bool{
	"apartment":       true,
	"condo":           true,
	"mansion":         true,
	"tower":           true,
	"housing_complex": true,
	"office_building": true,
}

var singleFamilyBuildingTypes = map[string]bool{
	"house":          true,
	"detached_house": true,
}

// IsMultiUnit reports whether a building type requires floor and elevator
// questions. Unknown types answer false for both predicates.
func IsMultiUnit(buildingType string) bool {
	return multiUnitBuildingTypes[normalizeToken(buildingType)]
}

// isSingleFamily reports whether a building type auto-satisfies floor access.
func isSingleFamily(buildingType string) bool {
	return singleFamilyBuildingTypes[normalizeToken(buildingType)]
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Item is one inventory entry.
type Item struct {
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
	Count    int    `json:"count,omitempty"`
	SizeHint string `json:"size_hint,omitempty"`
	Note     string `json:"note,omitempty"`
}

type PartySizeSlot struct {
	Count  *int   `json:"count,omitempty"`
	Raw    string `json:"raw,omitempty"`
	Status Status `json:"status"`
}

// AddressSlot carries independently nullable sub-attributes. Status is
// computed from which sub-attributes are present, never stored redundantly
// by callers.
type AddressSlot struct {
	Value      string `json:"value,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Prefecture string `json:"prefecture,omitempty"`
	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	Status     Status `json:"status"`
}

type ScheduleSlot struct {
	Value    string `json:"value,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Month    *int   `json:"month,omitempty"`
	Day      *int   `json:"day,omitempty"`
	Period   string `json:"period,omitempty"`
	TimeSlot string `json:"time_slot,omitempty"`
	Status   Status `json:"status"`
}

type InventorySlot struct {
	Items  []Item `json:"items,omitempty"`
	Done   bool   `json:"done,omitempty"`
	Status Status `json:"status"`
}

type AccessSlot struct {
	Floor       *int   `json:"floor,omitempty"`
	HasElevator *bool  `json:"has_elevator,omitempty"`
	Status      Status `json:"status"`
}

type ChoiceSlot struct {
	Value  string `json:"value,omitempty"`
	Status Status `json:"status"`
}

type RequestsSlot struct {
	Entries []string `json:"entries,omitempty"`
	Done    bool     `json:"done,omitempty"`
	Status  Status   `json:"status"`
}

// AddressPatch is a transient partial extraction for an address field.
// Building and room attributes ride along because users volunteer them
// in the same breath; the validator forwards them to their own slots.
type AddressPatch struct {
	Value        string `json:"value,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Prefecture   string `json:"prefecture,omitempty"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	BuildingType string `json:"building_type,omitempty"`
	RoomType     string `json:"room_type,omitempty"`
}

// AccessPatch is a transient partial extraction for a floor-access field.
type AccessPatch struct {
	Floor       *int  `json:"floor,omitempty"`
	HasElevator *bool `json:"has_elevator,omitempty"`
}

// SchedulePatch is a transient partial extraction for the schedule field.
type SchedulePatch struct {
	Value    string `json:"value,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Month    *int   `json:"month,omitempty"`
	Day      *int   `json:"day,omitempty"`
	Period   string `json:"period,omitempty"`
	TimeSlot string `json:"time_slot,omitempty"`
}

// Turn is one prior message kept for model context.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

const maxHistoryTurns = 12

// FactRecord is the per-session source of truth for everything collected
// from the user. Phase and next-field are always recomputed from it,
// never cached across a mutation.
type FactRecord struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`
	Frozen    bool   `json:"frozen,omitempty"`

	PartySize          PartySizeSlot `json:"party_size"`
	Origin             AddressSlot   `json:"origin_address"`
	Destination        AddressSlot   `json:"destination_address"`
	Schedule           ScheduleSlot  `json:"schedule"`
	Inventory          InventorySlot `json:"inventory"`
	OriginBuildingType ChoiceSlot    `json:"origin_building_type"`
	OriginRoomType     ChoiceSlot    `json:"origin_room_type"`
	OriginAccess       AccessSlot    `json:"origin_floor_access"`
	DestinationAccess  AccessSlot    `json:"destination_floor_access"`
	Packing            ChoiceSlot    `json:"packing_option"`
	Requests           RequestsSlot  `json:"special_requests"`

	History   []Turn    `json:"history,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFactRecord(sessionID string, now time.Time) *FactRecord {
	rec := &FactRecord{
		SessionID: sessionID,
		Version:   1,
		UpdatedAt: now.UTC(),
	}
	for _, f := range AllFields() {
		rec.setStatus(f, StatusNotStarted)
	}
	return rec
}

func (r *FactRecord) Touch(now time.Time) {
	r.Version++
	r.UpdatedAt = now.UTC()
}

// StatusOf returns the status tag for a field. Unknown fields report
// NOT_STARTED; callers validate ids at the boundary.
func (r *FactRecord) StatusOf(field FieldID) Status {
	switch field {
	case FieldPartySize:
		return r.PartySize.Status
	case FieldOriginAddress:
		return r.Origin.Status
	case FieldDestinationAddress:
		return r.Destination.Status
	case FieldSchedule:
		return r.Schedule.Status
	case FieldInventory:
		return r.Inventory.Status
	case FieldOriginBuildingType:
		return r.OriginBuildingType.Status
	case FieldOriginRoomType:
		return r.OriginRoomType.Status
	case FieldOriginFloorAccess:
		return r.OriginAccess.Status
	case FieldDestinationFloorAccess:
		return r.DestinationAccess.Status
	case FieldPackingOption:
		return r.Packing.Status
	case FieldSpecialRequests:
		return r.Requests.Status
	}
	return StatusNotStarted
}

func (r *FactRecord) setStatus(field FieldID, s Status) {
	switch field {
	case FieldPartySize:
		r.PartySize.Status = s
	case FieldOriginAddress:
		r.Origin.Status = s
	case FieldDestinationAddress:
		r.Destination.Status = s
	case FieldSchedule:
		r.Schedule.Status = s
	case FieldInventory:
		r.Inventory.Status = s
	case FieldOriginBuildingType:
		r.OriginBuildingType.Status = s
	case FieldOriginRoomType:
		r.OriginRoomType.Status = s
	case FieldOriginFloorAccess:
		r.OriginAccess.Status = s
	case FieldDestinationFloorAccess:
		r.DestinationAccess.Status = s
	case FieldPackingOption:
		r.Packing.Status = s
	case FieldSpecialRequests:
		r.Requests.Status = s
	}
}

// SetStatus moves a field to the given status, enforcing the promotion
// rule for BASELINE and IDEAL.
func (r *FactRecord) SetStatus(field FieldID, s Status) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if s.AtLeastBaseline() && !r.BaselineReady(field) {
		return fmt.Errorf("%w: field=%s status=%s", ErrInvariantViolation, field, s)
	}
	r.setStatus(field, s)
	return nil
}

// MarkSkipped is idempotent: skipping twice yields the same state as once.
func (r *FactRecord) MarkSkipped(field FieldID) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	r.setStatus(field, StatusSkipped)
	return nil
}

// MarkAsked tags an untouched field as asked so advisory fields stop
// blocking the phase. Fields that already progressed keep their status.
func (r *FactRecord) MarkAsked(field FieldID) {
	if r.StatusOf(field) == StatusNotStarted {
		r.setStatus(field, StatusAsked)
	}
}

// ResetField is the explicit correction path back to NOT_STARTED.
func (r *FactRecord) ResetField(field FieldID) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	switch field {
	case FieldPartySize:
		r.PartySize = PartySizeSlot{Status: StatusNotStarted}
	case FieldOriginAddress:
		r.Origin = AddressSlot{Status: StatusNotStarted}
	case FieldDestinationAddress:
		r.Destination = AddressSlot{Status: StatusNotStarted}
	case FieldSchedule:
		r.Schedule = ScheduleSlot{Status: StatusNotStarted}
	case FieldInventory:
		r.Inventory = InventorySlot{Status: StatusNotStarted}
	case FieldOriginBuildingType:
		r.OriginBuildingType = ChoiceSlot{Status: StatusNotStarted}
	case FieldOriginRoomType:
		r.OriginRoomType = ChoiceSlot{Status: StatusNotStarted}
	case FieldOriginFloorAccess:
		r.OriginAccess = AccessSlot{Status: StatusNotStarted}
	case FieldDestinationFloorAccess:
		r.DestinationAccess = AccessSlot{Status: StatusNotStarted}
	case FieldPackingOption:
		r.Packing = ChoiceSlot{Status: StatusNotStarted}
	case FieldSpecialRequests:
		r.Requests = RequestsSlot{Status: StatusNotStarted}
	}
	return nil
}

// BaselineReady reports whether the field's red-line predicate holds,
// i.e. whether BASELINE is allowed at all.
func (r *FactRecord) BaselineReady(field FieldID) bool {
	switch field {
	case FieldPartySize:
		return r.PartySize.Count != nil && *r.PartySize.Count > 0
	case FieldOriginAddress:
		return strings.TrimSpace(r.Origin.PostalCode) != ""
	case FieldDestinationAddress:
		return strings.TrimSpace(r.Destination.City) != "" ||
			strings.TrimSpace(r.Destination.District) != ""
	case FieldSchedule:
		return r.Schedule.Year != nil && r.Schedule.Month != nil &&
			(r.Schedule.Day != nil || strings.TrimSpace(r.Schedule.Period) != "")
	case FieldInventory:
		return len(r.Inventory.Items) >= 1
	case FieldOriginBuildingType:
		return strings.TrimSpace(r.OriginBuildingType.Value) != ""
	case FieldOriginRoomType:
		return strings.TrimSpace(r.OriginRoomType.Value) != ""
	case FieldOriginFloorAccess:
		return r.OriginAccess.Floor != nil
	case FieldDestinationFloorAccess:
		return r.DestinationAccess.Floor != nil
	case FieldPackingOption:
		return strings.TrimSpace(r.Packing.Value) != ""
	case FieldSpecialRequests:
		return len(r.Requests.Entries) >= 1 || r.Requests.Done
	}
	return false
}

// Untouched reports whether no field has left NOT_STARTED.
func (r *FactRecord) Untouched() bool {
	for _, f := range AllFields() {
		if r.StatusOf(f) != StatusNotStarted {
			return false
		}
	}
	return true
}

// Validate fails loudly when a status claims more than its red-line
// predicate supports. A violation is a programming bug, not user input.
func (r *FactRecord) Validate() error {
	if r == nil {
		return errors.New("nil fact record")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return ErrInvalidSession
	}
	for _, f := range AllFields() {
		if r.StatusOf(f).AtLeastBaseline() && !r.BaselineReady(f) {
			return fmt.Errorf("%w: field=%s status=%s", ErrInvariantViolation, f, r.StatusOf(f))
		}
	}
	return nil
}

// Clone returns a deep copy so a turn can merge into a scratch record
// and commit only after validation.
func (r *FactRecord) Clone() *FactRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.PartySize.Count = cloneIntPtr(r.PartySize.Count)
	out.Schedule.Year = cloneIntPtr(r.Schedule.Year)
	out.Schedule.Month = cloneIntPtr(r.Schedule.Month)
	out.Schedule.Day = cloneIntPtr(r.Schedule.Day)
	out.OriginAccess.Floor = cloneIntPtr(r.OriginAccess.Floor)
	out.OriginAccess.HasElevator = cloneBoolPtr(r.OriginAccess.HasElevator)
	out.DestinationAccess.Floor = cloneIntPtr(r.DestinationAccess.Floor)
	out.DestinationAccess.HasElevator = cloneBoolPtr(r.DestinationAccess.HasElevator)
	out.Inventory.Items = append([]Item(nil), r.Inventory.Items...)
	out.Requests.Entries = append([]string(nil), r.Requests.Entries...)
	out.History = append([]Turn(nil), r.History...)
	return &out
}

// AppendTurn keeps a bounded window of recent turns for model context.
func (r *FactRecord) AppendTurn(role, text string, now time.Time) {
	r.History = append(r.History, Turn{Role: role, Text: text, At: now.UTC()})
	if len(r.History) > maxHistoryTurns {
		r.History = r.History[len(r.History)-maxHistoryTurns:]
	}
}

// Freeze marks the record immutable for quote export.
func (r *FactRecord) Freeze(now time.Time) {
	if r.Frozen {
		return
	}
	r.Frozen = true
	r.Touch(now)
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
