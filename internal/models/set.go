package models

import "time"

// Set is one upstream catalog set. The primary key is the upstream stable ID;
// Code is unique but mutable upstream, so it is never used as a join key.
type Set struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Code        string     `json:"code" gorm:"uniqueIndex;not null"`
	Name        string     `json:"name" gorm:"not null"`
	PrintedName string     `json:"printed_name,omitempty"`
	SetType     string     `json:"set_type"`
	ReleasedAt  *time.Time `json:"released_at" gorm:"index"`
	CardCount   int        `json:"card_count"`
	IconURI     string     `json:"icon_uri"`
	Digital     bool       `json:"digital"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
