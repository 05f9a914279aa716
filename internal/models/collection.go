package models

import (
	"time"
)

type Condition string

const (
	ConditionMint      Condition = "M"
	ConditionNearMint  Condition = "NM"
	ConditionExcellent Condition = "EX"
	ConditionGood      Condition = "GD"
	ConditionLightPlay Condition = "LP"
	ConditionPlayed    Condition = "PL"
	ConditionPoor      Condition = "PR"
)

// CollectionItem is one owned stack of a single printing.
type CollectionItem struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID       string    `json:"card_id" gorm:"not null;index"`
	Card         Card      `json:"card" gorm:"foreignKey:CardID"`
	Quantity     int       `json:"quantity" gorm:"default:1"`
	FoilQuantity int       `json:"foil_quantity"`
	Condition    Condition `json:"condition" gorm:"default:'NM'"`
	Notes        string    `json:"notes"`
	AddedAt      time.Time `json:"added_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AddToCollectionRequest struct {
	CardID       string    `json:"card_id" binding:"required"`
	Quantity     int       `json:"quantity"`
	FoilQuantity int       `json:"foil_quantity"`
	Condition    Condition `json:"condition"`
	Notes        string    `json:"notes"`
}

type UpdateCollectionRequest struct {
	Quantity     *int       `json:"quantity"`
	FoilQuantity *int       `json:"foil_quantity"`
	Condition    *Condition `json:"condition"`
	Notes        *string    `json:"notes"`
}

type CollectionStats struct {
	TotalCards  int     `json:"total_cards"`
	UniqueCards int     `json:"unique_cards"`
	TotalValue  float64 `json:"total_value"`
}
