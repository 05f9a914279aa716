package models

import (
	"time"

	"gorm.io/datatypes"
)

type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
	RaritySpecial  Rarity = "special"
	RarityBonus    Rarity = "bonus"
)

// ImageURIs holds the upstream image bundle for one printing.
type ImageURIs struct {
	Small   string `json:"small,omitempty"`
	Normal  string `json:"normal,omitempty"`
	Large   string `json:"large,omitempty"`
	PNG     string `json:"png,omitempty"`
	ArtCrop string `json:"art_crop,omitempty"`
}

// CardPrices holds the raw upstream price strings. The numeric EUR values used
// for range filtering are extracted into Card.PriceEUR / Card.PriceEURFoil at
// sync time so filters never re-parse strings.
type CardPrices struct {
	EUR     string `json:"eur,omitempty"`
	EURFoil string `json:"eur_foil,omitempty"`
	USD     string `json:"usd,omitempty"`
	USDFoil string `json:"usd_foil,omitempty"`
	Tix     string `json:"tix,omitempty"`
}

// Card is a single printing of a card. Rows are created and updated only by
// the catalog sync; IsExtra is recomputed from the provenance flags on every
// write and never hand-edited.
type Card struct {
	ID       string `json:"id" gorm:"primaryKey"`
	OracleID string `json:"oracle_id" gorm:"index"`
	SetID    string `json:"set_id" gorm:"not null;index"`
	Set      *Set   `json:"set,omitempty" gorm:"foreignKey:SetID"`

	Name        string `json:"name" gorm:"not null;index"`
	PrintedName string `json:"printed_name,omitempty"`
	Lang        string `json:"lang" gorm:"default:'en';index"`

	ManaCost        string  `json:"mana_cost"`
	ManaValue       float64 `json:"mana_value"`
	TypeLine        string  `json:"type_line"`
	PrintedTypeLine string  `json:"printed_type_line,omitempty"`
	OracleText      string  `json:"oracle_text"`
	PrintedText     string  `json:"printed_text,omitempty"`
	Power           string  `json:"power,omitempty"`
	Toughness       string  `json:"toughness,omitempty"`
	Loyalty         string  `json:"loyalty,omitempty"`

	Colors        datatypes.JSONSlice[string] `json:"colors"`
	ColorIdentity datatypes.JSONSlice[string] `json:"color_identity"`

	Rarity          Rarity     `json:"rarity" gorm:"index"`
	CollectorNumber string     `json:"collector_number"`
	ReleasedAt      *time.Time `json:"released_at" gorm:"index"`

	ImageURIs    datatypes.JSONType[ImageURIs]         `json:"image_uris"`
	Prices       datatypes.JSONType[CardPrices]        `json:"prices"`
	PriceEUR     *float64                              `json:"price_eur" gorm:"index"`
	PriceEURFoil *float64                              `json:"price_eur_foil"`
	Legalities   datatypes.JSONType[map[string]string] `json:"legalities"`

	// Provenance flags from the upstream record, kept as classifier input.
	Booster      bool                        `json:"booster"`
	Promo        bool                        `json:"promo"`
	Variation    bool                        `json:"variation"`
	BorderColor  string                      `json:"border_color"`
	FrameEffects datatypes.JSONSlice[string] `json:"frame_effects"`
	PromoTypes   datatypes.JSONSlice[string] `json:"promo_types"`

	IsExtra bool `json:"is_extra" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayTypeLine returns the localized type line when present, else the
// primary one. Type substring filtering uses this.
func (c *Card) DisplayTypeLine() string {
	if c.PrintedTypeLine != "" {
		return c.PrintedTypeLine
	}
	return c.TypeLine
}
