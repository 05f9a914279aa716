package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mbrettin/cardbase/internal/metrics"
	"github.com/mbrettin/cardbase/internal/models"
)

// syncStaleAfter is how old a RUNNING ledger row may be before it is presumed
// abandoned (crashed process) and swept to FAILED.
const syncStaleAfter = 30 * time.Minute

// ErrSyncInProgress is returned when a sync of the same type is already
// running. Triggers never queue; they fail fast.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncOptions narrow a card sync to one set and/or one language.
type SyncOptions struct {
	Force    bool
	SetCode  string
	Language string
}

// CatalogSyncService orchestrates catalog synchronization runs. The SyncRun
// ledger is the source of truth for "in progress"; the in-memory flag map is
// only a fast path for same-process double triggers. Both are advisory: a
// second process can still race, which the stale sweep corrects eventually.
type CatalogSyncService struct {
	db       *gorm.DB
	scryfall *ScryfallClient
	writer   *CatalogWriter

	mu      sync.Mutex
	running map[models.SyncType]bool

	onComplete []func()
}

func NewCatalogSyncService(db *gorm.DB, scryfall *ScryfallClient) *CatalogSyncService {
	return &CatalogSyncService{
		db:       db,
		scryfall: scryfall,
		writer:   NewCatalogWriter(db),
		running:  make(map[models.SyncType]bool),
	}
}

// OnComplete registers a hook invoked after every successful run. The search
// service uses this to drop its result cache.
func (s *CatalogSyncService) OnComplete(fn func()) {
	s.onComplete = append(s.onComplete, fn)
}

// SyncSets pulls the full upstream sets listing. Digital-only sets are not
// physical product and are left out of the catalog.
func (s *CatalogSyncService) SyncSets(ctx context.Context, force bool) (*models.SyncRun, error) {
	return s.run(ctx, models.SyncTypeSets, func(ctx context.Context) (int, error) {
		return s.syncSets(ctx, force)
	})
}

// SyncCards pulls card records, optionally narrowed to one set or language.
// Without a set code it walks every local set in turn.
func (s *CatalogSyncService) SyncCards(ctx context.Context, opts SyncOptions) (*models.SyncRun, error) {
	return s.run(ctx, models.SyncTypeCards, func(ctx context.Context) (int, error) {
		return s.syncCards(ctx, opts)
	})
}

// SyncAll runs sets then cards under a single ledger entry.
func (s *CatalogSyncService) SyncAll(ctx context.Context, opts SyncOptions) (*models.SyncRun, error) {
	return s.run(ctx, models.SyncTypeFull, func(ctx context.Context) (int, error) {
		processed, err := s.syncSets(ctx, opts.Force)
		if err != nil {
			return processed, err
		}
		cardCount, err := s.syncCards(ctx, opts)
		return processed + cardCount, err
	})
}

// SyncTranslations re-fetches localized printings for sets whose cards are
// missing localized fields in the given language.
func (s *CatalogSyncService) SyncTranslations(ctx context.Context, language string) (*models.SyncRun, error) {
	if language == "" {
		return nil, fmt.Errorf("translation sync requires a language code")
	}
	return s.run(ctx, models.SyncTypeTranslations, func(ctx context.Context) (int, error) {
		return s.syncTranslations(ctx, language)
	})
}

// IsRunning reports whether a run of this type is active, consulting the
// fast-path flag first and then the ledger.
func (s *CatalogSyncService) IsRunning(typ models.SyncType) bool {
	s.mu.Lock()
	inProcess := s.running[typ]
	s.mu.Unlock()
	if inProcess {
		return true
	}
	var live int64
	err := s.db.Model(&models.SyncRun{}).
		Where("type = ? AND status = ? AND started_at > ?", typ, models.SyncStatusRunning, time.Now().Add(-syncStaleAfter)).
		Count(&live).Error
	return err == nil && live > 0
}

// run is the shared state machine: IDLE -> RUNNING -> SUCCESS|FAILED. The
// in-process flag is released on every exit path, panics included.
func (s *CatalogSyncService) run(ctx context.Context, typ models.SyncType, job func(context.Context) (int, error)) (*models.SyncRun, error) {
	s.mu.Lock()
	if s.running[typ] {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running[typ] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running[typ] = false
		s.mu.Unlock()
	}()

	s.sweepStaleRuns(typ)

	// Another process may hold a live RUNNING row; respect it.
	var live int64
	err := s.db.Model(&models.SyncRun{}).
		Where("type = ? AND status = ? AND started_at > ?", typ, models.SyncStatusRunning, time.Now().Add(-syncStaleAfter)).
		Count(&live).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check sync ledger: %w", err)
	}
	if live > 0 {
		return nil, ErrSyncInProgress
	}

	run := &models.SyncRun{
		ID:        uuid.NewString(),
		Type:      typ,
		Status:    models.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create sync run: %w", err)
	}

	log.Printf("Catalog sync: %s run %s started", typ, run.ID)
	start := time.Now()

	processed, jobErr := s.runJob(ctx, job)
	duration := time.Since(start)

	now := time.Now()
	run.RecordsProcessed = processed
	run.FinishedAt = &now
	if jobErr != nil {
		run.Status = models.SyncStatusFailed
		run.Message = jobErr.Error()
		log.Printf("Catalog sync: %s run %s failed after %v: %v", typ, run.ID, duration.Round(time.Millisecond), jobErr)
	} else {
		run.Status = models.SyncStatusSuccess
		run.Message = fmt.Sprintf("processed %d records in %v", processed, duration.Round(time.Second))
		log.Printf("Catalog sync: %s run %s finished: %s", typ, run.ID, run.Message)
	}
	if err := s.db.Save(run).Error; err != nil {
		log.Printf("Catalog sync: failed to finalize run %s: %v", run.ID, err)
	}

	metrics.SyncRunsTotal.WithLabelValues(string(typ), string(run.Status)).Inc()
	metrics.SyncDuration.WithLabelValues(string(typ)).Observe(duration.Seconds())
	metrics.SyncRecordsProcessed.WithLabelValues(string(typ)).Add(float64(processed))
	metrics.UpdateCatalogMetrics(s.db)

	if jobErr == nil {
		for _, fn := range s.onComplete {
			fn()
		}
	}

	return run, jobErr
}

// runJob converts a panic in the job into a run failure so the ledger never
// keeps a RUNNING row for a dead goroutine.
func (s *CatalogSyncService) runJob(ctx context.Context, job func(context.Context) (int, error)) (processed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync panicked: %v", r)
		}
	}()
	return job(ctx)
}

// sweepStaleRuns force-fails RUNNING rows of this type older than the
// staleness timeout.
func (s *CatalogSyncService) sweepStaleRuns(typ models.SyncType) {
	now := time.Now()
	result := s.db.Model(&models.SyncRun{}).
		Where("type = ? AND status = ? AND started_at <= ?", typ, models.SyncStatusRunning, now.Add(-syncStaleAfter)).
		Updates(map[string]interface{}{
			"status":      models.SyncStatusFailed,
			"message":     "timeout: run abandoned, swept before new start",
			"finished_at": now,
		})
	if result.Error != nil {
		log.Printf("Catalog sync: stale sweep failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Catalog sync: swept %d stale %s run(s) to FAILED", result.RowsAffected, typ)
	}
}

func (s *CatalogSyncService) syncSets(ctx context.Context, force bool) (int, error) {
	upstream, err := s.scryfall.ListSets(ctx)
	if err != nil {
		return 0, err
	}

	physical := make([]ScryfallSet, 0, len(upstream))
	for _, set := range upstream {
		if set.Digital {
			continue
		}
		physical = append(physical, set)
	}

	stats, err := s.writer.UpsertSets(ctx, physical, force)
	if err != nil {
		return statsProcessed(stats), err
	}
	log.Printf("Catalog sync: sets upserted: %+v", *stats)
	return stats.Processed(), nil
}

func (s *CatalogSyncService) syncCards(ctx context.Context, opts SyncOptions) (int, error) {
	var codes []string
	if opts.SetCode != "" {
		codes = []string{normalizeSetCode(opts.SetCode)}
	} else {
		if err := s.db.Model(&models.Set{}).Order("released_at DESC").Pluck("code", &codes).Error; err != nil {
			return 0, fmt.Errorf("failed to list local sets: %w", err)
		}
	}

	processed := 0
	for _, code := range codes {
		stats, err := s.syncSetCards(ctx, code, opts.Language, opts.Force)
		processed += statsProcessed(stats)
		if err != nil {
			return processed, fmt.Errorf("set %s: %w", code, err)
		}
	}
	return processed, nil
}

// syncSetCards fetches and writes every printing of one set. Cards stream in
// page by page and are flushed to the writer in card-batch-sized chunks.
func (s *CatalogSyncService) syncSetCards(ctx context.Context, code, language string, force bool) (*UpsertStats, error) {
	query := fmt.Sprintf("set:%s", strings.ToLower(code))
	if language != "" {
		query += fmt.Sprintf(" lang:%s", strings.ToLower(language))
	}

	total := &UpsertStats{}
	buf := make([]ScryfallCard, 0, cardBatchSize)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		stats, err := s.writer.UpsertCards(ctx, buf, force)
		if stats != nil {
			total.Created += stats.Created
			total.Updated += stats.Updated
			total.Skipped += stats.Skipped
			total.Errors += stats.Errors
		}
		buf = buf[:0]
		return err
	}

	err := s.scryfall.EachSearchCard(ctx, query, func(card ScryfallCard) error {
		buf = append(buf, card)
		if len(buf) >= cardBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, flush()
}

// syncTranslations walks the sets that contain cards lacking localized fields
// for the language and re-pulls those printings with force set, so existing
// rows pick up printed name/type/text.
func (s *CatalogSyncService) syncTranslations(ctx context.Context, language string) (int, error) {
	var codes []string
	err := s.db.Model(&models.Card{}).
		Distinct("sets.code").
		Joins("JOIN sets ON sets.id = cards.set_id").
		Where("cards.lang = ? AND (cards.printed_name = '' OR cards.printed_name IS NULL)", strings.ToLower(language)).
		Pluck("sets.code", &codes).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find sets missing translations: %w", err)
	}
	if len(codes) == 0 {
		log.Printf("Catalog sync: no cards missing %s translations", language)
		return 0, nil
	}

	processed := 0
	for _, code := range codes {
		stats, err := s.syncSetCards(ctx, code, language, true)
		processed += statsProcessed(stats)
		if err != nil {
			return processed, fmt.Errorf("set %s: %w", code, err)
		}
	}
	return processed, nil
}

// CleanupHistory deletes terminal ledger rows older than the given day count.
func (s *CatalogSyncService) CleanupHistory(olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	result := s.db.
		Where("status IN ? AND started_at < ?", []models.SyncStatus{models.SyncStatusSuccess, models.SyncStatusFailed}, cutoff).
		Delete(&models.SyncRun{})
	return result.RowsAffected, result.Error
}

// Status returns the most recent run of each sync type.
func (s *CatalogSyncService) Status() (map[models.SyncType]*models.SyncRun, error) {
	status := make(map[models.SyncType]*models.SyncRun)
	for _, typ := range []models.SyncType{models.SyncTypeSets, models.SyncTypeCards, models.SyncTypeFull, models.SyncTypeTranslations} {
		var run models.SyncRun
		err := s.db.Where("type = ?", typ).Order("started_at DESC").First(&run).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		status[typ] = &run
	}
	return status, nil
}

// History lists recent runs, newest first.
func (s *CatalogSyncService) History(limit int) ([]models.SyncRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []models.SyncRun
	err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func statsProcessed(stats *UpsertStats) int {
	if stats == nil {
		return 0
	}
	return stats.Processed()
}

func normalizeSetCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
