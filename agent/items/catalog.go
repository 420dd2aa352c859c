package items

import (
	"strings"

	statex "github.com/erabu-ai/agentcore/agent/state"
)

// catalog is the static inventory picklist offered while building the
// item list. Recognition output never bypasses it; only user-confirmed
// entries reach the record.
var catalog = []statex.Item{
	{Label: "bed", Category: "furniture", SizeHint: "large"},
	{Label: "sofa", Category: "furniture", SizeHint: "large"},
	{Label: "dining_table", Category: "furniture", SizeHint: "medium"},
	{Label: "desk", Category: "furniture", SizeHint: "medium"},
	{Label: "bookshelf", Category: "furniture", SizeHint: "medium"},
	{Label: "wardrobe", Category: "furniture", SizeHint: "large"},
	{Label: "refrigerator", Category: "appliance", SizeHint: "large"},
	{Label: "washing_machine", Category: "appliance", SizeHint: "large"},
	{Label: "television", Category: "appliance", SizeHint: "medium"},
	{Label: "microwave", Category: "appliance", SizeHint: "small"},
	{Label: "air_conditioner", Category: "appliance", SizeHint: "medium"},
	{Label: "cardboard_box", Category: "box", SizeHint: "small"},
	{Label: "bicycle", Category: "other", SizeHint: "medium"},
	{Label: "piano", Category: "other", SizeHint: "large"},
}

// CatalogLabels returns the picklist labels minus the already-selected
// ones, preserving catalog order.
func CatalogLabels(selected []statex.Item) []string {
	chosen := make(map[string]bool, len(selected))
	for _, it := range selected {
		chosen[strings.ToLower(strings.TrimSpace(it.Label))] = true
	}
	labels := make([]string, 0, len(catalog))
	for _, it := range catalog {
		if chosen[it.Label] {
			continue
		}
		labels = append(labels, it.Label)
	}
	return labels
}

// Enrich fills category and size hints for labels found in the catalog.
func Enrich(item statex.Item) statex.Item {
	label := strings.ToLower(strings.TrimSpace(item.Label))
	for _, known := range catalog {
		if known.Label != label {
			continue
		}
		if item.Category == "" {
			item.Category = known.Category
		}
		if item.SizeHint == "" {
			item.SizeHint = known.SizeHint
		}
		break
	}
	return item
}

// ConfirmSubset returns the recognized items the user actually accepted,
// matched by label. Raw recognition output is never merged directly.
func ConfirmSubset(recognized []statex.Item, accepted []string) []statex.Item {
	want := make(map[string]bool, len(accepted))
	for _, label := range accepted {
		want[strings.ToLower(strings.TrimSpace(label))] = true
	}
	out := make([]statex.Item, 0, len(accepted))
	for _, it := range recognized {
		if want[strings.ToLower(strings.TrimSpace(it.Label))] {
			out = append(out, Enrich(it))
		}
	}
	return out
}
