package services

// extraFrameEffects are the cosmetic treatments that mark a printing as a
// variant on their own. Single definition; every place that classifies cards
// goes through ComputeIsExtra. Full-art is not in the list: basic lands are
// commonly full-art in normal boosters.
var extraFrameEffects = map[string]struct{}{
	"extendedart":        {},
	"showcase":           {},
	"borderless":         {},
	"etched":             {},
	"inverted":           {},
	"shatteredglass":     {},
	"textless":           {},
	"fullartdoublefaced": {},
}

// ComputeIsExtra classifies a catalog card record as a non-standard printing:
// not obtainable from regular randomized boosters. Pure function of the
// upstream provenance flags, recomputed on every sync write.
func ComputeIsExtra(promo, variation, booster bool, frameEffects []string) bool {
	if promo || variation {
		return true
	}
	if !booster {
		return true
	}
	for _, fe := range frameEffects {
		if _, ok := extraFrameEffects[fe]; ok {
			return true
		}
	}
	return false
}
