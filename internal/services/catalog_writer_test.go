package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mbrettin/cardbase/internal/metrics"
	"github.com/mbrettin/cardbase/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"", nil},
		{"0.25", floatPtr(0.25)},
		{"1234.56", floatPtr(1234.56)},
		{"n/a", nil},
		{"1,50", nil},
	}
	for _, tt := range tests {
		got := parsePrice(tt.raw)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parsePrice(%q) = %v, want nil", tt.raw, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parsePrice(%q) = %v, want %v", tt.raw, got, *tt.want)
		}
	}
}

func TestParseReleaseDate(t *testing.T) {
	if parseReleaseDate("") != nil {
		t.Error("empty date must be absent")
	}
	if parseReleaseDate("not-a-date") != nil {
		t.Error("malformed date must be absent")
	}
	got := parseReleaseDate("2018-04-27")
	if got == nil || got.Year() != 2018 || int(got.Month()) != 4 || got.Day() != 27 {
		t.Errorf("parseReleaseDate = %v", got)
	}
}

func TestUpsertCards_ForceRecomputesClassification(t *testing.T) {
	db := openTestDB(t)
	writer := NewCatalogWriter(db)
	ctx := context.Background()

	if _, err := writer.UpsertSets(ctx, []ScryfallSet{{ID: "set-1", Code: "tst", Name: "Test"}}, false); err != nil {
		t.Fatalf("upsert sets: %v", err)
	}

	record := ScryfallCard{ID: "c1", Name: "Test Card", Lang: "en", SetID: "set-1", Set: "tst", Booster: true}
	stats, err := writer.UpsertCards(ctx, []ScryfallCard{record}, false)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if stats.Created != 1 {
		t.Fatalf("expected 1 created, got %+v", *stats)
	}

	var card models.Card
	if err := db.First(&card, "id = ?", "c1").Error; err != nil {
		t.Fatalf("fetch card: %v", err)
	}
	if card.IsExtra {
		t.Fatal("booster printing must not be extra")
	}

	// Upstream reclassifies the printing as a promo; a forced re-sync must
	// overwrite the stored flag, not keep the stale one.
	record.Promo = true
	stats, err = writer.UpsertCards(ctx, []ScryfallCard{record}, true)
	if err != nil {
		t.Fatalf("forced upsert: %v", err)
	}
	if stats.Updated != 1 {
		t.Fatalf("expected 1 updated, got %+v", *stats)
	}

	if err := db.First(&card, "id = ?", "c1").Error; err != nil {
		t.Fatalf("refetch card: %v", err)
	}
	if !card.IsExtra {
		t.Error("forced re-sync must recompute the extras flag")
	}

	var count int64
	db.Model(&models.Card{}).Count(&count)
	if count != 1 {
		t.Errorf("upsert must not duplicate rows, got %d", count)
	}
}

func TestUpsertCards_WithoutForceSkipsExisting(t *testing.T) {
	db := openTestDB(t)
	writer := NewCatalogWriter(db)
	ctx := context.Background()

	if _, err := writer.UpsertSets(ctx, []ScryfallSet{{ID: "set-1", Code: "tst", Name: "Test"}}, false); err != nil {
		t.Fatalf("upsert sets: %v", err)
	}
	record := ScryfallCard{ID: "c1", Name: "Test Card", Lang: "en", SetID: "set-1", Set: "tst", Booster: true}
	if _, err := writer.UpsertCards(ctx, []ScryfallCard{record}, false); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	record.Name = "Renamed Card"
	skippedBefore := testutil.ToFloat64(metrics.SyncRecordsSkipped)
	stats, err := writer.UpsertCards(ctx, []ScryfallCard{record}, false)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if stats.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %+v", *stats)
	}
	// The already-present skip counts in the metric, same as the missing-set
	// skip.
	if got := testutil.ToFloat64(metrics.SyncRecordsSkipped) - skippedBefore; got != 1 {
		t.Errorf("expected skip metric to advance by 1, got %v", got)
	}

	var card models.Card
	if err := db.First(&card, "id = ?", "c1").Error; err != nil {
		t.Fatalf("fetch card: %v", err)
	}
	if card.Name != "Test Card" {
		t.Errorf("unforced re-sync must not rewrite existing rows, got %q", card.Name)
	}
}
