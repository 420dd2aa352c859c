package options

import (
	"testing"
	"time"

	contractx "github.com/erabu-ai/agentcore/agent/contract"
	statex "github.com/erabu-ai/agentcore/agent/state"
)

func TestQuickRepliesStaticTable(t *testing.T) {
	t.Parallel()

	replies, ok := QuickReplies(statex.FieldOriginBuildingType, contractx.SubTaskAskBuildingType, nil)
	if !ok || len(replies) == 0 {
		t.Fatalf("QuickReplies() = %v/%t, want static entries", replies, ok)
	}

	replies, ok = QuickReplies(statex.FieldPartySize, contractx.SubTaskAskValue, nil)
	if !ok || len(replies) != 4 {
		t.Fatalf("party size replies = %v/%t", replies, ok)
	}
}

func TestQuickRepliesNoEntryFallsThrough(t *testing.T) {
	t.Parallel()

	// Free-form address text has no static set; the caller may generate.
	if replies, ok := QuickReplies(statex.FieldOriginAddress, contractx.SubTaskAskValue, nil); ok {
		t.Fatalf("expected no static entry, got %v", replies)
	}
}

func TestInventoryRepliesFilterSelected(t *testing.T) {
	t.Parallel()

	rec := statex.NewFactRecord("s1", time.Now())
	replies, ok := QuickReplies(statex.FieldInventory, contractx.SubTaskAskMoreItems, rec)
	if !ok {
		t.Fatal("expected inventory replies")
	}
	for _, r := range replies {
		if r == statex.NoMoreToken {
			t.Fatal("empty inventory must not offer the terminal token")
		}
	}

	rec.Inventory.Items = []statex.Item{{Label: "bed", Count: 1}}
	replies, _ = QuickReplies(statex.FieldInventory, contractx.SubTaskAskMoreItems, rec)

	sawNoMore := false
	for _, r := range replies {
		if r == "bed" {
			t.Fatal("selected item must be filtered out")
		}
		if r == statex.NoMoreToken {
			sawNoMore = true
		}
	}
	if !sawNoMore {
		t.Fatal("non-empty inventory must offer the terminal token")
	}
}

func TestRequestRepliesFilterChosen(t *testing.T) {
	t.Parallel()

	rec := statex.NewFactRecord("s1", time.Now())
	rec.Requests.Entries = []string{"piano_transport"}

	replies, ok := QuickReplies(statex.FieldSpecialRequests, contractx.SubTaskAskSpecialRequests, rec)
	if !ok {
		t.Fatal("expected request replies")
	}
	sawNoMore := false
	for _, r := range replies {
		if r == "piano_transport" {
			t.Fatal("chosen request must be filtered out")
		}
		if r == statex.NoMoreToken {
			sawNoMore = true
		}
	}
	if !sawNoMore {
		t.Fatal("request replies always offer the terminal token")
	}
}
