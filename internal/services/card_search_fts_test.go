//go:build sqlite_fts5

package services

import (
	"context"
	"testing"

	"github.com/mbrettin/cardbase/internal/database"
	"github.com/mbrettin/cardbase/internal/models"
)

// Run with `go test -tags sqlite_fts5 ./...` so mattn/go-sqlite3 compiles the
// FTS5 module in.

func TestSearchCardIDs_FTSStrategyServes(t *testing.T) {
	db := openTestDB(t)
	seedSearchCards(t, db)

	svc := NewCardSearchService(db, database.DialectSQLite)
	if got := svc.strategy.name(); got != "sqlite-fts5" {
		t.Fatalf("expected sqlite-fts5 strategy, got %s", got)
	}

	ids, err := svc.SearchCardIDs(context.Background(), models.SearchRequest{Query: "llanowar"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(ids), ids)
	}

	// Tokens AND together across the indexed columns, which substring
	// containment cannot do.
	ids, err = svc.SearchCardIDs(context.Background(), models.SearchRequest{Query: "llanowar elves"})
	if err != nil {
		t.Fatalf("two-token search: %v", err)
	}
	if len(ids) != 1 || ids[0] != "card-elves" {
		t.Errorf("expected only card-elves for two-token query, got %v", ids)
	}
}

func TestSearchIndex_TriggersKeepLockstep(t *testing.T) {
	db := openTestDB(t)
	seedSearchCards(t, db)

	var indexed int64
	if err := db.Raw("SELECT count(*) FROM card_search").Scan(&indexed).Error; err != nil {
		t.Fatalf("count index rows: %v", err)
	}
	if indexed != 4 {
		t.Fatalf("expected 4 indexed rows after seeding, got %d", indexed)
	}

	if err := db.Delete(&models.Card{}, "id = ?", "card-bolt").Error; err != nil {
		t.Fatalf("delete card: %v", err)
	}
	if err := db.Raw("SELECT count(*) FROM card_search").Scan(&indexed).Error; err != nil {
		t.Fatalf("recount index rows: %v", err)
	}
	if indexed != 3 {
		t.Errorf("expected 3 indexed rows after delete, got %d", indexed)
	}
}
