package items

import (
	"errors"
	"testing"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

func TestCatalogLabelsFilterSelected(t *testing.T) {
	t.Parallel()

	all := CatalogLabels(nil)
	if len(all) != len(catalog) {
		t.Fatalf("expected %d labels, got %d", len(catalog), len(all))
	}

	filtered := CatalogLabels([]statex.Item{{Label: "Bed"}, {Label: " piano "}})
	if len(filtered) != len(catalog)-2 {
		t.Fatalf("expected %d labels after filtering, got %d", len(catalog)-2, len(filtered))
	}
	for _, l := range filtered {
		if l == "bed" || l == "piano" {
			t.Fatalf("selected label %q leaked through", l)
		}
	}
}

func TestEnrichFillsKnownLabels(t *testing.T) {
	t.Parallel()

	got := Enrich(statex.Item{Label: "Sofa", Count: 1})
	if got.Category != "furniture" || got.SizeHint != "large" {
		t.Fatalf("Enrich() = %+v, want catalog attributes", got)
	}

	// Explicit attributes win over the catalog.
	got = Enrich(statex.Item{Label: "sofa", Category: "fragile"})
	if got.Category != "fragile" {
		t.Fatalf("Category = %q, want caller value kept", got.Category)
	}

	got = Enrich(statex.Item{Label: "hot_tub"})
	if got.Category != "" {
		t.Fatalf("unknown label must stay unenriched: %+v", got)
	}
}

func TestConfirmSubset(t *testing.T) {
	t.Parallel()

	recognized := []statex.Item{
		{Label: "bed", Count: 1},
		{Label: "sofa", Count: 2},
		{Label: "plant", Count: 3},
	}

	got := ConfirmSubset(recognized, []string{"Bed", " plant "})
	if len(got) != 2 {
		t.Fatalf("expected 2 accepted items, got %d", len(got))
	}
	if got[0].Label != "bed" || got[1].Label != "plant" {
		t.Fatalf("unexpected subset: %+v", got)
	}
	if got[0].Category != "furniture" {
		t.Fatal("accepted items must be enriched")
	}

	if got := ConfirmSubset(recognized, nil); len(got) != 0 {
		t.Fatalf("nothing accepted must yield nothing, got %+v", got)
	}
}

func TestParseRecognizedItems(t *testing.T) {
	t.Parallel()

	raw := "```json\n[{\"label\":\"Bed\",\"count\":0},{\"label\":\"\"},{\"label\":\"sofa\",\"count\":2,\"category\":\"furniture\"}]\n```"
	items, err := parseRecognizedItems(raw)
	if err != nil {
		t.Fatalf("parseRecognizedItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Label != "bed" || items[0].Count != 1 {
		t.Fatalf("items[0] = %+v, want normalized bed x1", items[0])
	}
	if items[0].Category != "furniture" {
		t.Fatal("known label must be enriched")
	}
	if items[1].Count != 2 {
		t.Fatalf("items[1].Count = %d, want 2", items[1].Count)
	}
}

func TestParseRecognizedItemsRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := parseRecognizedItems("not json"); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("error = %v, want ErrSchemaViolation", err)
	}
	if _, err := parseRecognizedItems("   "); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("error = %v, want ErrSchemaViolation", err)
	}
}
