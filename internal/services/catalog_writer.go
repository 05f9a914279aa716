package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mbrettin/cardbase/internal/metrics"
	"github.com/mbrettin/cardbase/internal/models"
)

const (
	setBatchSize  = 50
	cardBatchSize = 100
	// upsertConcurrency bounds in-flight writes per chunk. This protects the
	// connection pool, not correctness: every upsert targets a unique key.
	upsertConcurrency = 10
	interBatchPause   = 100 * time.Millisecond
)

// UpsertStats accumulates the outcome of one writer call.
type UpsertStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func (s *UpsertStats) Processed() int {
	return s.Created + s.Updated + s.Skipped + s.Errors
}

// CatalogWriter persists normalized catalog records idempotently. Re-running
// the same batch twice produces no duplicate rows and identical final state.
type CatalogWriter struct {
	db *gorm.DB
}

func NewCatalogWriter(db *gorm.DB) *CatalogWriter {
	return &CatalogWriter{db: db}
}

// UpsertSets writes set records keyed on the upstream stable ID, never on the
// mutable code field (codes get reassigned upstream). Existing rows are
// skipped unless force is set.
func (w *CatalogWriter) UpsertSets(ctx context.Context, sets []ScryfallSet, force bool) (*UpsertStats, error) {
	stats := &UpsertStats{}
	var mu sync.Mutex

	existing, err := w.existingIDs("sets")
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(sets); start += setBatchSize {
		end := min(start+setBatchSize, len(sets))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(upsertConcurrency)

		for _, record := range sets[start:end] {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, exists := existing[record.ID]
				if exists && !force {
					mu.Lock()
					stats.Skipped++
					mu.Unlock()
					metrics.SyncRecordsSkipped.Inc()
					return nil
				}

				set := setFromScryfall(record)
				err := w.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&set).Error
				mu.Lock()
				switch {
				case err != nil:
					stats.Errors++
					log.Printf("Catalog writer: failed to upsert set %s (%s): %v", record.Code, record.ID, err)
				case exists:
					stats.Updated++
				default:
					stats.Created++
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// UpsertCards writes card records keyed on the upstream card ID. A card whose
// owning set is not locally present is skipped and logged; the batch
// continues. IsExtra is recomputed on every write regardless of force.
func (w *CatalogWriter) UpsertCards(ctx context.Context, cards []ScryfallCard, force bool) (*UpsertStats, error) {
	stats := &UpsertStats{}
	var mu sync.Mutex

	existing, err := w.existingIDs("cards")
	if err != nil {
		return nil, err
	}
	knownSets, err := w.existingIDs("sets")
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(cards); start += cardBatchSize {
		end := min(start+cardBatchSize, len(cards))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(upsertConcurrency)

		for _, record := range cards[start:end] {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, ok := knownSets[record.SetID]; !ok {
					log.Printf("Catalog writer: skipping card %s (%s): set %s not present locally",
						record.Name, record.ID, record.Set)
					mu.Lock()
					stats.Skipped++
					mu.Unlock()
					metrics.SyncRecordsSkipped.Inc()
					return nil
				}
				_, exists := existing[record.ID]
				if exists && !force {
					mu.Lock()
					stats.Skipped++
					mu.Unlock()
					metrics.SyncRecordsSkipped.Inc()
					return nil
				}

				card := cardFromScryfall(record)
				err := w.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&card).Error
				mu.Lock()
				switch {
				case err != nil:
					stats.Errors++
					log.Printf("Catalog writer: failed to upsert card %s (%s): %v", record.Name, record.ID, err)
				case exists:
					stats.Updated++
				default:
					stats.Created++
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}

		if end < len(cards) {
			time.Sleep(interBatchPause)
		}
	}

	return stats, nil
}

func (w *CatalogWriter) existingIDs(table string) (map[string]struct{}, error) {
	var ids []string
	if err := w.db.Table(table).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func setFromScryfall(s ScryfallSet) models.Set {
	return models.Set{
		ID:          s.ID,
		Code:        normalizeSetCode(s.Code),
		Name:        s.Name,
		PrintedName: s.PrintedName,
		SetType:     s.SetType,
		ReleasedAt:  parseReleaseDate(s.ReleasedAt),
		CardCount:   s.CardCount,
		IconURI:     s.IconSVGURI,
		Digital:     s.Digital,
	}
}

func cardFromScryfall(c ScryfallCard) models.Card {
	card := models.Card{
		ID:              c.ID,
		OracleID:        c.OracleID,
		SetID:           c.SetID,
		Name:            c.Name,
		PrintedName:     c.PrintedName,
		Lang:            c.Lang,
		ManaCost:        c.ManaCost,
		ManaValue:       c.CMC,
		TypeLine:        c.TypeLine,
		PrintedTypeLine: c.PrintedTypeLine,
		OracleText:      c.OracleText,
		PrintedText:     c.PrintedText,
		Power:           c.Power,
		Toughness:       c.Toughness,
		Loyalty:         c.Loyalty,
		Colors:          c.Colors,
		ColorIdentity:   c.ColorIdentity,
		Rarity:          models.Rarity(c.Rarity),
		CollectorNumber: c.CollectorNumber,
		ReleasedAt:      parseReleaseDate(c.ReleasedAt),
		PriceEUR:        parsePrice(c.Prices.EUR),
		PriceEURFoil:    parsePrice(c.Prices.EURFoil),
		Booster:         c.Booster,
		Promo:           c.Promo,
		Variation:       c.Variation,
		BorderColor:     c.BorderColor,
		FrameEffects:    c.FrameEffects,
		PromoTypes:      c.PromoTypes,
		IsExtra:         ComputeIsExtra(c.Promo, c.Variation, c.Booster, c.FrameEffects),
	}

	if c.ImageURIs != nil {
		card.ImageURIs = datatypes.NewJSONType(models.ImageURIs{
			Small:   c.ImageURIs.Small,
			Normal:  c.ImageURIs.Normal,
			Large:   c.ImageURIs.Large,
			PNG:     c.ImageURIs.PNG,
			ArtCrop: c.ImageURIs.ArtCrop,
		})
	}
	card.Prices = datatypes.NewJSONType(models.CardPrices{
		EUR:     c.Prices.EUR,
		EURFoil: c.Prices.EURFoil,
		USD:     c.Prices.USD,
		USDFoil: c.Prices.USDFoil,
		Tix:     c.Prices.Tix,
	})
	if c.Legalities != nil {
		card.Legalities = datatypes.NewJSONType(c.Legalities)
	}

	return card
}

// parsePrice extracts a numeric EUR value from the upstream price string.
// Malformed or empty prices are treated as absent, never as an error.
func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
