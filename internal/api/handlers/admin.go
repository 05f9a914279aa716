package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbrettin/cardbase/internal/models"
	"github.com/mbrettin/cardbase/internal/services"
)

type AdminHandler struct {
	sync *services.CatalogSyncService
}

func NewAdminHandler(sync *services.CatalogSyncService) *AdminHandler {
	return &AdminHandler{sync: sync}
}

type syncTriggerRequest struct {
	Type     string `json:"type" binding:"required"`
	Force    bool   `json:"force"`
	SetCode  string `json:"setCode"`
	Language string `json:"language"`
}

// TriggerSync starts a sync run in the background. A run of the same type
// already in progress answers 409 immediately; triggers never queue.
func (h *AdminHandler) TriggerSync(c *gin.Context) {
	var req syncTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typ := models.SyncType(req.Type)
	switch typ {
	case models.SyncTypeSets, models.SyncTypeCards, models.SyncTypeFull, models.SyncTypeTranslations:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be sets, cards, full or translations"})
		return
	}
	if typ == models.SyncTypeTranslations && req.Language == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "translations sync requires language"})
		return
	}

	if h.sync.IsRunning(typ) {
		c.JSON(http.StatusConflict, gin.H{"error": "sync already in progress"})
		return
	}

	opts := services.SyncOptions{Force: req.Force, SetCode: req.SetCode, Language: req.Language}

	// The run outlives the HTTP request; the service's own flag closes the
	// remaining race window between the IsRunning check and this goroutine.
	go func() {
		ctx := context.Background()
		var err error
		switch typ {
		case models.SyncTypeSets:
			_, err = h.sync.SyncSets(ctx, req.Force)
		case models.SyncTypeCards:
			_, err = h.sync.SyncCards(ctx, opts)
		case models.SyncTypeFull:
			_, err = h.sync.SyncAll(ctx, opts)
		case models.SyncTypeTranslations:
			_, err = h.sync.SyncTranslations(ctx, req.Language)
		}
		if err != nil && !errors.Is(err, services.ErrSyncInProgress) {
			log.Printf("Admin: background %s sync failed: %v", typ, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "sync started", "type": typ})
}

// GetSyncStatus returns the most recent run per type.
func (h *AdminHandler) GetSyncStatus(c *gin.Context) {
	status, err := h.sync.Status()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetSyncHistory lists recent ledger rows, newest first.
func (h *AdminHandler) GetSyncHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.sync.History(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// CleanupSyncHistory deletes terminal ledger rows older than ?days=N.
func (h *AdminHandler) CleanupSyncHistory(c *gin.Context) {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	deleted, err := h.sync.CleanupHistory(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
