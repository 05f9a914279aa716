package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mbrettin/cardbase/internal/models"
)

// postgresSearch ranks in four tiers before full-text relevance: exact primary
// name, exact localized name, prefix on primary, prefix on localized, then
// recency. The tsvector expression matches the one indexed by
// database.EnsureSearchIndex.
type postgresSearch struct{}

func (postgresSearch) name() string { return "postgres" }

const postgresSearchSQL = `
SELECT * FROM cards
WHERE lower(name) = lower(@q)
   OR lower(printed_name) = lower(@q)
   OR lower(name) LIKE lower(@q) || '%'
   OR lower(printed_name) LIKE lower(@q) || '%'
   OR to_tsvector('simple',
		coalesce(name, '') || ' ' || coalesce(printed_name, '') || ' ' ||
		coalesce(type_line, '') || ' ' || coalesce(printed_type_line, '') || ' ' ||
		coalesce(oracle_text, '') || ' ' || coalesce(printed_text, ''))
	@@ plainto_tsquery('simple', @q)
ORDER BY (lower(name) = lower(@q)) DESC,
         (lower(printed_name) = lower(@q)) DESC,
         (lower(name) LIKE lower(@q) || '%') DESC,
         (lower(printed_name) LIKE lower(@q) || '%') DESC,
         released_at DESC NULLS LAST
LIMIT @limit`

func (postgresSearch) candidates(db *gorm.DB, query string, limit int) ([]models.Card, error) {
	var cards []models.Card
	err := db.Raw(postgresSearchSQL,
		map[string]interface{}{"q": query, "limit": limit},
	).Scan(&cards).Error
	return cards, err
}

// sqliteFTSSearch joins the FTS5 table back to cards and ranks by FTS5 match
// rank alone, without the exact/prefix tiers of the postgres path.
type sqliteFTSSearch struct{}

func (sqliteFTSSearch) name() string { return "sqlite-fts5" }

const sqliteSearchSQL = `
SELECT cards.* FROM cards
JOIN card_search ON card_search.card_id = cards.id
WHERE card_search MATCH ?
ORDER BY card_search.rank
LIMIT ?`

func (sqliteFTSSearch) candidates(db *gorm.DB, query string, limit int) ([]models.Card, error) {
	var cards []models.Card
	err := db.Raw(sqliteSearchSQL, ftsMatchQuery(query), limit).Scan(&cards).Error
	return cards, err
}

// ftsMatchQuery quotes each token so user input never reaches the FTS5 query
// parser as syntax; tokens AND together.
func ftsMatchQuery(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// likeSearch is the degraded path when the full-text structure is missing
// (FTS5 module not compiled in, index never created). Substring containment
// over the searchable columns, newest printings first.
type likeSearch struct{}

func (likeSearch) name() string { return "like-fallback" }

func (likeSearch) candidates(db *gorm.DB, query string, limit int) ([]models.Card, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	var cards []models.Card
	err := db.
		Where(`lower(name) LIKE ? OR lower(printed_name) LIKE ? OR lower(type_line) LIKE ?
			OR lower(printed_type_line) LIKE ? OR lower(oracle_text) LIKE ?`,
			pattern, pattern, pattern, pattern, pattern).
		Order("released_at DESC").
		Order("collector_number ASC").
		Limit(limit).
		Find(&cards).Error
	return cards, err
}
