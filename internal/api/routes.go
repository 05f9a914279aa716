package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mbrettin/cardbase/internal/api/handlers"
	"github.com/mbrettin/cardbase/internal/metrics"
	"github.com/mbrettin/cardbase/internal/services"
)

func SetupRouter(db *gorm.DB, search *services.CardSearchService, sync *services.CatalogSyncService) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(config))
	router.Use(requestMetrics())

	cardHandler := handlers.NewCardHandler(db, search)
	collectionHandler := handlers.NewCollectionHandler(db, search)
	adminHandler := handlers.NewAdminHandler(sync)

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/search", cardHandler.SearchCards)
			cards.GET("/:id", cardHandler.GetCard)
		}

		api.GET("/sets", cardHandler.ListSets)

		collection := api.Group("/collection")
		{
			collection.GET("", collectionHandler.GetCollection)
			collection.POST("", collectionHandler.AddToCollection)
			collection.PUT("/:id", collectionHandler.UpdateCollectionItem)
			collection.DELETE("/:id", collectionHandler.DeleteCollectionItem)
			collection.GET("/stats", collectionHandler.GetStats)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/sync", adminHandler.TriggerSync)
			admin.GET("/sync/status", adminHandler.GetSyncStatus)
			admin.GET("/sync/history", adminHandler.GetSyncHistory)
			admin.DELETE("/sync/history", adminHandler.CleanupSyncHistory)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records per-route request counts and uses the route template
// so card IDs don't explode label cardinality.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
