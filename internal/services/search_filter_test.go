package services

import (
	"testing"

	"github.com/mbrettin/cardbase/internal/models"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func TestMatchesColorIdentity(t *testing.T) {
	tests := []struct {
		name      string
		identity  []string
		requested []string
		want      bool
	}{
		{name: "no filter matches anything", identity: []string{"W"}, requested: nil, want: true},
		{name: "colorless matches empty identity", identity: []string{}, requested: []string{"C"}, want: true},
		{name: "colorless matches explicit C", identity: []string{"C"}, requested: []string{"C"}, want: true},
		{name: "colorless does not match colored", identity: []string{"W"}, requested: []string{"C"}, want: false},
		{name: "empty identity fails colored request", identity: []string{}, requested: []string{"W"}, want: false},
		{name: "single color subset", identity: []string{"W", "U"}, requested: []string{"W"}, want: true},
		{name: "exact identity", identity: []string{"W", "U"}, requested: []string{"W", "U"}, want: true},
		{name: "AND semantics, missing letter fails", identity: []string{"W", "U"}, requested: []string{"W", "B"}, want: false},
		{name: "lowercase identity normalized", identity: []string{"w"}, requested: []string{"W"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesColorIdentity(tt.identity, tt.requested); got != tt.want {
				t.Errorf("matchesColorIdentity(%v, %v) = %v, want %v", tt.identity, tt.requested, got, tt.want)
			}
		})
	}
}

func TestMatchesPriceRange(t *testing.T) {
	priced := &models.Card{PriceEUR: floatPtr(2.50)}
	unpriced := &models.Card{}

	if !matchesPriceRange(priced, nil, nil) {
		t.Error("no bounds must match")
	}
	if !matchesPriceRange(priced, floatPtr(1), floatPtr(5)) {
		t.Error("2.50 must fall in [1,5]")
	}
	if matchesPriceRange(priced, floatPtr(3), nil) {
		t.Error("2.50 must fail min 3")
	}
	if matchesPriceRange(priced, nil, floatPtr(2)) {
		t.Error("2.50 must fail max 2")
	}
	// Missing price fails any bound that is set.
	if matchesPriceRange(unpriced, floatPtr(0), nil) {
		t.Error("missing price must fail a set lower bound")
	}
	if matchesPriceRange(unpriced, nil, floatPtr(100)) {
		t.Error("missing price must fail a set upper bound")
	}
	if !matchesPriceRange(unpriced, nil, nil) {
		t.Error("missing price with no bounds must match")
	}
}

func TestMatchesTypeLine_PrefersLocalized(t *testing.T) {
	card := &models.Card{TypeLine: "Creature — Elf Druid", PrintedTypeLine: "Kreatur — Elf, Druide"}

	if !matchesTypeLine(card, "druide") {
		t.Error("localized type line should match case-insensitively")
	}
	if matchesTypeLine(card, "creature") {
		t.Error("primary line must not be consulted when a localized line exists")
	}

	primaryOnly := &models.Card{TypeLine: "Instant"}
	if !matchesTypeLine(primaryOnly, "instant") {
		t.Error("primary type line used when no localized line exists")
	}
}

func TestApplyFilters_SoundnessAndOrder(t *testing.T) {
	cards := []models.Card{
		{ID: "a", Rarity: models.RarityRare, PriceEUR: floatPtr(10), ColorIdentity: []string{"G"}, TypeLine: "Creature — Elf"},
		{ID: "b", Rarity: models.RarityCommon, PriceEUR: floatPtr(0.05), ColorIdentity: []string{"G"}, TypeLine: "Creature — Elf"},
		{ID: "c", Rarity: models.RarityRare, PriceEUR: floatPtr(3), ColorIdentity: []string{"G"}, TypeLine: "Creature — Elf", IsExtra: true},
		{ID: "d", Rarity: models.RarityRare, PriceEUR: floatPtr(5), ColorIdentity: []string{"U"}, TypeLine: "Creature — Merfolk"},
		{ID: "e", Rarity: models.RarityRare, PriceEUR: floatPtr(2), ColorIdentity: []string{"G"}, TypeLine: "Creature — Elf"},
	}

	got := applyFilters(cards, models.SearchFilters{
		Rarity:       models.RarityRare,
		Colors:       []string{"G"},
		TypeContains: "elf",
		PriceMin:     floatPtr(1),
		Extras:       boolPtr(false),
	})

	// a and e survive; c is an extra, b is common and too cheap, d is blue.
	if len(got) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "e" {
		t.Errorf("filter must preserve input order, got %s,%s", got[0].ID, got[1].ID)
	}

	for _, card := range got {
		if card.Rarity != models.RarityRare {
			t.Errorf("card %s violates rarity filter", card.ID)
		}
		if card.IsExtra {
			t.Errorf("card %s violates extras filter", card.ID)
		}
	}
}
