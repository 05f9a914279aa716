package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"

	"github.com/mbrettin/cardbase/internal/database"
	"github.com/mbrettin/cardbase/internal/metrics"
	"github.com/mbrettin/cardbase/internal/models"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
	// minQueryRunes guards against scanning the catalog for one-letter
	// queries. Shorter queries return empty, not an error.
	minQueryRunes   = 2
	searchCacheSize = 256
)

// searchStrategy produces candidate rows for a text query. One implementation
// per storage engine, chosen once at startup; the post-filter on top is shared.
type searchStrategy interface {
	name() string
	candidates(db *gorm.DB, query string, limit int) ([]models.Card, error)
}

// CardSearchService turns a free-text query plus structured filters into a
// ranked, deduplicated list of card identifiers.
type CardSearchService struct {
	db       *gorm.DB
	strategy searchStrategy
	fallback searchStrategy
	cache    *lru.Cache[string, []string]
}

func NewCardSearchService(db *gorm.DB, dialect database.Dialect) *CardSearchService {
	var strategy searchStrategy
	switch dialect {
	case database.DialectPostgres:
		strategy = postgresSearch{}
	default:
		// A sqlite build without the FTS5 module never gets the card_search
		// table, so probe once and commit to LIKE containment up front. The
		// per-query IsMissingSearchIndex gate below still covers a structure
		// that disappears after startup.
		if database.HasSearchIndex(db, dialect) {
			strategy = sqliteFTSSearch{}
		} else {
			log.Printf("Card search: full-text structure unavailable, using LIKE containment")
			strategy = likeSearch{}
		}
	}

	cache, _ := lru.New[string, []string](searchCacheSize)
	return &CardSearchService{
		db:       db,
		strategy: strategy,
		fallback: likeSearch{},
		cache:    cache,
	}
}

// PurgeCache drops cached results. The sync orchestrator calls this after
// every successful run so searches never serve pre-sync rankings forever.
func (s *CardSearchService) PurgeCache() {
	s.cache.Purge()
}

// SearchCardIDs executes the search pipeline: dialect strategy, LIKE fallback
// when the full-text structure is missing, then the in-process post-filter.
// Filter order from the strategy is preserved; the filter never re-sorts.
// "No matches" and "query too short" are empty results, never errors.
func (s *CardSearchService) SearchCardIDs(ctx context.Context, req models.SearchRequest) ([]string, error) {
	query := strings.TrimSpace(req.Query)
	if utf8.RuneCountInString(query) < minQueryRunes {
		return []string{}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	key := cacheKey(query, limit, req.Filters)
	if ids, ok := s.cache.Get(key); ok {
		metrics.SearchCacheHits.Inc()
		out := make([]string, len(ids))
		copy(out, ids)
		return out, nil
	}
	metrics.SearchCacheMisses.Inc()

	db := s.db.WithContext(ctx)
	start := time.Now()
	strategyName := s.strategy.name()

	cards, err := s.strategy.candidates(db, query, limit)
	if database.IsMissingSearchIndex(err) {
		strategyName = s.fallback.name()
		cards, err = s.fallback.candidates(db, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("card search failed: %w", err)
	}
	metrics.SearchDuration.WithLabelValues(strategyName).Observe(time.Since(start).Seconds())

	cards = applyFilters(cards, req.Filters)

	ids := make([]string, 0, len(cards))
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		if _, dup := seen[card.ID]; dup {
			continue
		}
		seen[card.ID] = struct{}{}
		ids = append(ids, card.ID)
		if len(ids) >= limit {
			break
		}
	}

	cached := make([]string, len(ids))
	copy(cached, ids)
	s.cache.Add(key, cached)

	return ids, nil
}

// HydrateCards fetches full rows for search identifiers and re-applies the
// identifier order, since the batch fetch itself is unordered.
func (s *CardSearchService) HydrateCards(ctx context.Context, ids []string) ([]models.Card, error) {
	if len(ids) == 0 {
		return []models.Card{}, nil
	}
	var rows []models.Card
	if err := s.db.WithContext(ctx).Preload("Set").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Card, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	ordered := make([]models.Card, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// cacheKey canonicalizes a request. The query is length-prefixed so a "|" in
// user input cannot shift it into the filter fields and collide with a
// differently-filtered request.
func cacheKey(query string, limit int, f models.SearchFilters) string {
	q := strings.ToLower(query)
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%s", len(q), q)
	fmt.Fprintf(&b, "|%d|%s|%s|%s", limit, strings.Join(f.Colors, ","), f.Rarity, strings.ToLower(f.TypeContains))
	if f.PriceMin != nil {
		fmt.Fprintf(&b, "|min%g", *f.PriceMin)
	}
	if f.PriceMax != nil {
		fmt.Fprintf(&b, "|max%g", *f.PriceMax)
	}
	if f.Extras != nil {
		fmt.Fprintf(&b, "|x%t", *f.Extras)
	}
	return b.String()
}
