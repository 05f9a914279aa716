package services

import (
	"strings"

	"github.com/mbrettin/cardbase/internal/models"
)

// applyFilters is the in-process post-filter. It runs after any strategy
// because not every predicate pushes down to every dialect, and it preserves
// the incoming order.
func applyFilters(cards []models.Card, f models.SearchFilters) []models.Card {
	out := cards[:0:0]
	for _, card := range cards {
		if !matchesExtras(&card, f.Extras) {
			continue
		}
		if !matchesRarity(&card, f.Rarity) {
			continue
		}
		if !matchesPriceRange(&card, f.PriceMin, f.PriceMax) {
			continue
		}
		if !matchesTypeLine(&card, f.TypeContains) {
			continue
		}
		if !matchesColorIdentity(card.ColorIdentity, f.Colors) {
			continue
		}
		out = append(out, card)
	}
	return out
}

func matchesExtras(card *models.Card, extras *bool) bool {
	return extras == nil || card.IsExtra == *extras
}

func matchesRarity(card *models.Card, rarity models.Rarity) bool {
	return rarity == "" || card.Rarity == rarity
}

// matchesPriceRange checks the extracted numeric EUR price. A card without a
// price fails any bound that is set.
func matchesPriceRange(card *models.Card, minPrice, maxPrice *float64) bool {
	if minPrice == nil && maxPrice == nil {
		return true
	}
	if card.PriceEUR == nil {
		return false
	}
	if minPrice != nil && *card.PriceEUR < *minPrice {
		return false
	}
	if maxPrice != nil && *card.PriceEUR > *maxPrice {
		return false
	}
	return true
}

func matchesTypeLine(card *models.Card, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(card.DisplayTypeLine()), strings.ToLower(substr))
}

// matchesColorIdentity applies AND semantics: every requested letter must be
// satisfied. A requested C (colorless) is satisfied by an empty identity or an
// explicit C; any other letter must literally be in the identity set.
func matchesColorIdentity(identity []string, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(identity))
	for _, c := range identity {
		have[strings.ToUpper(c)] = struct{}{}
	}
	for _, want := range requested {
		want = strings.ToUpper(want)
		if want == "C" {
			if len(identity) == 0 {
				continue
			}
			if _, ok := have["C"]; ok {
				continue
			}
			return false
		}
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}
