package database

import (
	"log"
	"strings"

	"gorm.io/gorm"
)

// Text-search DDL. Both statements are best-effort: a sqlite build without the
// FTS5 module (mattn/go-sqlite3 ships it behind the sqlite_fts5 build tag, so
// plain `go build` does not have it) or a postgres role without index
// privileges leaves the engine usable, and the search layer degrades to LIKE
// containment when the structure is missing.

const sqliteSearchDDL = `
CREATE VIRTUAL TABLE IF NOT EXISTS card_search USING fts5(
	card_id UNINDEXED,
	name,
	printed_name,
	type_line,
	printed_type_line,
	oracle_text,
	printed_text
)`

// Triggers keep card_search in lockstep with cards so the upsert writer never
// has to know the index exists.
var sqliteSearchTriggers = []string{
	`CREATE TRIGGER IF NOT EXISTS cards_search_insert AFTER INSERT ON cards BEGIN
		INSERT INTO card_search(card_id, name, printed_name, type_line, printed_type_line, oracle_text, printed_text)
		VALUES (new.id, new.name, new.printed_name, new.type_line, new.printed_type_line, new.oracle_text, new.printed_text);
	END`,
	`CREATE TRIGGER IF NOT EXISTS cards_search_update AFTER UPDATE ON cards BEGIN
		DELETE FROM card_search WHERE card_id = old.id;
		INSERT INTO card_search(card_id, name, printed_name, type_line, printed_type_line, oracle_text, printed_text)
		VALUES (new.id, new.name, new.printed_name, new.type_line, new.printed_type_line, new.oracle_text, new.printed_text);
	END`,
	`CREATE TRIGGER IF NOT EXISTS cards_search_delete AFTER DELETE ON cards BEGIN
		DELETE FROM card_search WHERE card_id = old.id;
	END`,
}

const postgresSearchDDL = `
CREATE INDEX IF NOT EXISTS idx_cards_fulltext ON cards USING gin (
	to_tsvector('simple',
		coalesce(name, '') || ' ' || coalesce(printed_name, '') || ' ' ||
		coalesce(type_line, '') || ' ' || coalesce(printed_type_line, '') || ' ' ||
		coalesce(oracle_text, '') || ' ' || coalesce(printed_text, ''))
)`

// EnsureSearchIndex creates the dialect's full-text structure if possible.
func EnsureSearchIndex(db *gorm.DB, d Dialect) {
	switch d {
	case DialectPostgres:
		if err := db.Exec(postgresSearchDDL).Error; err != nil {
			log.Printf("Warning: failed to create full-text index, search will use LIKE fallback: %v", err)
		}
	default:
		if err := db.Exec(sqliteSearchDDL).Error; err != nil {
			log.Printf("Warning: failed to create FTS5 table, search will use LIKE fallback: %v", err)
			return
		}
		for _, ddl := range sqliteSearchTriggers {
			if err := db.Exec(ddl).Error; err != nil {
				log.Printf("Warning: failed to create FTS trigger: %v", err)
			}
		}
	}
}

// HasSearchIndex reports whether the dialect's full-text structure is usable.
// Checked once at startup so a build without the FTS5 module selects the LIKE
// strategy up front instead of rediscovering the missing table on every query.
func HasSearchIndex(db *gorm.DB, d Dialect) bool {
	switch d {
	case DialectPostgres:
		// The tsvector expression executes without the index; the index only
		// accelerates it.
		return true
	default:
		return db.Exec("SELECT count(*) FROM card_search").Error == nil
	}
}

// IsMissingSearchIndex reports whether err is the storage engine telling us
// the full-text structure does not exist. Only this class of error triggers
// the LIKE fallback; anything else propagates.
func IsMissingSearchIndex(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table: card_search") ||
		strings.Contains(msg, "no such module: fts5") ||
		strings.Contains(msg, `relation "card_search" does not exist`) ||
		strings.Contains(msg, "idx_cards_fulltext")
}
