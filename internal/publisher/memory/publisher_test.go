package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

func TestPublisherStoresRecords(t *testing.T) {
	t.Parallel()

	pub := New()
	media := []release.MediaUpload{{URL: "https://a.test/thumb", MediaID: "1"}}
	if err := pub.StoreRecord(context.Background(), release.Record{Title: "A-GRP", Media: media}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.StoreRecord(context.Background(), release.Record{Title: "B-GRP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := pub.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "A-GRP" || records[1].Title != "B-GRP" {
		t.Fatalf("records not kept in order: %+v", records)
	}

	media[0].MediaID = "modified"
	records[0].Title = "modified"
	again := pub.Records()
	if again[0].Title == "modified" || again[0].Media[0].MediaID == "modified" {
		t.Fatalf("expected stored records to be isolated from callers")
	}
}
