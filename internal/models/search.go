package models

// SearchFilters are the structured predicates applied on top of a text query.
// Nil pointer fields mean "not requested".
type SearchFilters struct {
	Colors       []string // single-letter identity codes out of W,U,B,R,G,C
	Rarity       Rarity
	TypeContains string
	PriceMin     *float64
	PriceMax     *float64
	Extras       *bool
}

// SearchRequest is the input contract of the card search. Queries shorter than
// two characters return an empty result without touching storage.
type SearchRequest struct {
	Query   string
	Limit   int
	Filters SearchFilters
}

// SearchResult carries ranked card identifiers. Consumers re-fetch full rows
// and must re-apply this ordering, since batch hydration is unordered.
type SearchResult struct {
	CardIDs []string `json:"card_ids"`
}
