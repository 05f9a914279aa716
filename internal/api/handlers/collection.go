package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbrettin/cardbase/internal/models"
	"github.com/mbrettin/cardbase/internal/services"
)

const maxQuantity = 9999

type CollectionHandler struct {
	db     *gorm.DB
	search *services.CardSearchService
}

func NewCollectionHandler(db *gorm.DB, search *services.CardSearchService) *CollectionHandler {
	return &CollectionHandler{db: db, search: search}
}

// GetCollection lists owned items. When a search query is supplied the owned
// set is intersected with the search result, keeping the search order.
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	query := c.Request.URL.Query()
	if query.Get("q") == "" {
		var items []models.CollectionItem
		if err := h.db.Preload("Card").Preload("Card.Set").Order("added_at DESC").Find(&items).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	req := ParseSearchRequest(query)
	ids, err := h.search.SearchCardIDs(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var items []models.CollectionItem
	if err := h.db.Preload("Card").Preload("Card.Set").Where("card_id IN ?", ids).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Re-apply search order: the IN fetch is unordered.
	byCard := make(map[string][]models.CollectionItem, len(items))
	for _, item := range items {
		byCard[item.CardID] = append(byCard[item.CardID], item)
	}
	ordered := make([]models.CollectionItem, 0, len(items))
	for _, id := range ids {
		ordered = append(ordered, byCard[id]...)
	}

	c.JSON(http.StatusOK, ordered)
}

func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if req.Quantity > maxQuantity || req.FoilQuantity > maxQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity exceeds maximum"})
		return
	}
	if req.Condition == "" {
		req.Condition = models.ConditionNearMint
	}

	var card models.Card
	if err := h.db.First(&card, "id = ?", req.CardID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not in local catalog"})
		return
	}

	item := models.CollectionItem{
		CardID:       req.CardID,
		Quantity:     req.Quantity,
		FoilQuantity: req.FoilQuantity,
		Condition:    req.Condition,
		Notes:        req.Notes,
		AddedAt:      time.Now(),
	}
	if err := h.db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	item.Card = card

	c.JSON(http.StatusCreated, item)
}

func (h *CollectionHandler) UpdateCollectionItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var item models.CollectionItem
	if err := h.db.First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	var req models.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Quantity != nil {
		if *req.Quantity <= 0 || *req.Quantity > maxQuantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity out of range"})
			return
		}
		item.Quantity = *req.Quantity
	}
	if req.FoilQuantity != nil {
		if *req.FoilQuantity < 0 || *req.FoilQuantity > maxQuantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "foil quantity out of range"})
			return
		}
		item.FoilQuantity = *req.FoilQuantity
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}

	if err := h.db.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *CollectionHandler) DeleteCollectionItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	result := h.db.Delete(&models.CollectionItem{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *CollectionHandler) GetStats(c *gin.Context) {
	var items []models.CollectionItem
	if err := h.db.Preload("Card").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var stats models.CollectionStats
	unique := make(map[string]struct{}, len(items))
	for _, item := range items {
		unique[item.CardID] = struct{}{}
		stats.TotalCards += item.Quantity + item.FoilQuantity
		if item.Card.PriceEUR != nil {
			stats.TotalValue += *item.Card.PriceEUR * float64(item.Quantity)
		}
		if item.Card.PriceEURFoil != nil {
			stats.TotalValue += *item.Card.PriceEURFoil * float64(item.FoilQuantity)
		}
	}
	stats.UniqueCards = len(unique)

	c.JSON(http.StatusOK, stats)
}
