// Package options holds the static quick-reply tables. One explicit
// precedence applies everywhere: the table answers first, and only a
// field/sub-task pair with no entry may fall back to model-generated
// options.
package options

import (
	contractx "github.com/erabu-ai/agentcore/agent/contract"
	itemsx "github.com/erabu-ai/agentcore/agent/items"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

var staticReplies = map[contractx.SubTask][]string{
	contractx.SubTaskAskBuildingType: {"apartment", "condo", "house", "office_building"},
	contractx.SubTaskAskRoomType:     {"1R", "1K", "1LDK", "2LDK", "3LDK+"},
	contractx.SubTaskAskPeriod:       {"this_month", "next_month", "in_two_months", "undecided"},
	contractx.SubTaskAskTimeSlot:     {"morning", "afternoon", "evening", "anytime"},
	contractx.SubTaskAskFloor:        {"1", "2", "3", "4+"},
	contractx.SubTaskAskElevator:     {"yes", "no"},
	contractx.SubTaskConfirmAddress:  {"yes", "no"},
	contractx.SubTaskConfirmSummary:  {"confirm", "modify"},
}

var specialRequestOptions = []string{
	"piano_transport",
	"fragile_items",
	"furniture_disassembly",
	"temporary_storage",
	"disposal_pickup",
}

// QuickReplies returns the static set for a field and sub-task. ok is
// false when no entry exists and the caller may generate options.
func QuickReplies(field statex.FieldID, sub contractx.SubTask, rec *statex.FactRecord) ([]string, bool) {
	switch field {
	case statex.FieldPartySize:
		return []string{"1", "2", "3", "4+"}, true
	case statex.FieldInventory:
		if sub == contractx.SubTaskAskMoreItems {
			return inventoryReplies(rec), true
		}
	case statex.FieldPackingOption:
		return []string{"full_service", "half_service", "self_pack"}, true
	case statex.FieldSpecialRequests:
		return requestReplies(rec), true
	}

	if replies, ok := staticReplies[sub]; ok {
		return append([]string(nil), replies...), true
	}
	return nil, false
}

// inventoryReplies is the catalog minus already-selected entries, with
// the terminal token appended once anything is on the list.
func inventoryReplies(rec *statex.FactRecord) []string {
	var selected []statex.Item
	if rec != nil {
		selected = rec.Inventory.Items
	}
	replies := itemsx.CatalogLabels(selected)
	if rec != nil && len(rec.Inventory.Items) > 0 {
		replies = append(replies, statex.NoMoreToken)
	}
	return replies
}

func requestReplies(rec *statex.FactRecord) []string {
	chosen := make(map[string]bool)
	if rec != nil {
		for _, e := range rec.Requests.Entries {
			chosen[e] = true
		}
	}
	replies := make([]string, 0, len(specialRequestOptions)+1)
	for _, opt := range specialRequestOptions {
		if chosen[opt] {
			continue
		}
		replies = append(replies, opt)
	}
	replies = append(replies, statex.NoMoreToken)
	return replies
}
