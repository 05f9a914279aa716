package models

import (
	"time"
)

type SyncType string

const (
	SyncTypeSets         SyncType = "sets"
	SyncTypeCards        SyncType = "cards"
	SyncTypeFull         SyncType = "full"
	SyncTypeTranslations SyncType = "translations"
)

type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "RUNNING"
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// SyncRun is the audit record of one synchronization attempt. The ledger is
// authoritative for "a sync is in progress": the orchestrator's in-memory flag
// is only a fast path, and stale RUNNING rows are swept to FAILED after a
// timeout before a new run of the same type may start.
type SyncRun struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	Type             SyncType   `json:"type" gorm:"not null;index"`
	Status           SyncStatus `json:"status" gorm:"not null;index"`
	Message          string     `json:"message"`
	RecordsProcessed int        `json:"records_processed"`
	StartedAt        time.Time  `json:"started_at" gorm:"index"`
	FinishedAt       *time.Time `json:"finished_at"`
}
