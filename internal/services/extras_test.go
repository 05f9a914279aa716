package services

import (
	"testing"
)

func TestComputeIsExtra(t *testing.T) {
	tests := []struct {
		name         string
		promo        bool
		variation    bool
		booster      bool
		frameEffects []string
		want         bool
	}{
		{name: "plain booster printing", booster: true, want: false},
		{name: "promo flag", promo: true, booster: true, want: true},
		{name: "variation flag", variation: true, booster: true, want: true},
		{name: "not in boosters", booster: false, want: true},
		{name: "showcase frame", booster: true, frameEffects: []string{"showcase"}, want: true},
		{name: "extended art", booster: true, frameEffects: []string{"extendedart"}, want: true},
		{name: "borderless", booster: true, frameEffects: []string{"borderless"}, want: true},
		{name: "etched", booster: true, frameEffects: []string{"etched"}, want: true},
		{name: "shattered glass", booster: true, frameEffects: []string{"shatteredglass"}, want: true},
		{name: "legendary frame is not a treatment", booster: true, frameEffects: []string{"legendary"}, want: false},
		{name: "mixed effects with one treatment", booster: true, frameEffects: []string{"legendary", "inverted"}, want: true},
		// Basic lands are commonly full-art in normal boosters; the flag
		// alone must not classify.
		{name: "full-art alone is not extra", booster: true, frameEffects: []string{"fullart"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeIsExtra(tt.promo, tt.variation, tt.booster, tt.frameEffects)
			if got != tt.want {
				t.Errorf("ComputeIsExtra() = %v, want %v", got, tt.want)
			}
		})
	}
}
