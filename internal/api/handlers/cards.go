package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mbrettin/cardbase/internal/models"
	"github.com/mbrettin/cardbase/internal/services"
)

type CardHandler struct {
	db     *gorm.DB
	search *services.CardSearchService
}

func NewCardHandler(db *gorm.DB, search *services.CardSearchService) *CardHandler {
	return &CardHandler{db: db, search: search}
}

// validColorCodes is the accepted color-identity letter set.
var validColorCodes = map[string]struct{}{
	"W": {}, "U": {}, "B": {}, "R": {}, "G": {}, "C": {},
}

// ParseSearchRequest coerces string-typed query parameters into a typed search
// request. Unparseable values are dropped (left unset), never errors: the
// search layer treats absent filters as "not requested".
func ParseSearchRequest(values url.Values) models.SearchRequest {
	req := models.SearchRequest{
		Query: values.Get("q"),
	}

	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		req.Limit = limit
	}

	if raw := values.Get("colors"); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			code = strings.ToUpper(strings.TrimSpace(code))
			if _, ok := validColorCodes[code]; ok {
				req.Filters.Colors = append(req.Filters.Colors, code)
			}
		}
	}

	switch r := models.Rarity(strings.ToLower(strings.TrimSpace(values.Get("rarity")))); r {
	case models.RarityCommon, models.RarityUncommon, models.RarityRare,
		models.RarityMythic, models.RaritySpecial, models.RarityBonus:
		req.Filters.Rarity = r
	}
	req.Filters.TypeContains = strings.TrimSpace(values.Get("typeContains"))

	if v, err := strconv.ParseFloat(values.Get("priceMin"), 64); err == nil {
		req.Filters.PriceMin = &v
	}
	if v, err := strconv.ParseFloat(values.Get("priceMax"), 64); err == nil {
		req.Filters.PriceMax = &v
	}

	switch values.Get("extras") {
	case "true":
		t := true
		req.Filters.Extras = &t
	case "false":
		f := false
		req.Filters.Extras = &f
	}

	return req
}

// SearchCards handles GET /api/cards/search. The search layer returns ranked
// identifiers; hydration re-applies that order.
func (h *CardHandler) SearchCards(c *gin.Context) {
	req := ParseSearchRequest(c.Request.URL.Query())

	ids, err := h.search.SearchCardIDs(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cards, err := h.search.HydrateCards(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":       cards,
		"card_ids":    ids,
		"total_count": len(cards),
	})
}

func (h *CardHandler) GetCard(c *gin.Context) {
	var card models.Card
	err := h.db.Preload("Set").First(&card, "id = ?", c.Param("id")).Error
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) ListSets(c *gin.Context) {
	var sets []models.Set
	if err := h.db.Order("released_at DESC").Find(&sets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sets)
}
