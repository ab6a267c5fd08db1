package handlers

import (
	"net/http"
	"time"

	"mls-property-api/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups every route handler. Admin and Keyword may be nil.
type Handlers struct {
	Properties   *PropertyHandler
	Autocomplete *AutocompleteHandler
	Images       *ImageHandler
	Keyword      *KeywordHandler
	Admin        *AdminHandler
}

// NewRouter registers all routes on a gin engine.
func NewRouter(allowedOrigins []string, h Handlers) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// cors panics on an empty origin list.
	if len(allowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/properties", h.Properties.Search)
		api.GET("/properties/:id", h.Properties.Get)
		api.GET("/properties/:id/history", h.Properties.History)
		api.POST("/properties/:id/process-images", h.Images.Process)

		api.GET("/autocomplete", h.Autocomplete.Suggest)
		api.GET("/images/:propertyId/:index", h.Images.Serve)

		if h.Keyword != nil {
			api.GET("/search", h.Keyword.Search)
		}
	}

	if h.Admin != nil {
		admin := r.Group("/api/admin")
		{
			admin.GET("/stats", h.Admin.GetStats)
			admin.GET("/jobs", h.Admin.GetJobStatus)
			admin.POST("/ingest", h.Admin.TriggerIngest)
			admin.POST("/migrate", h.Admin.TriggerMigration)

			admin.POST("/cleanup/without-images", h.Admin.RunCleanup)
			admin.GET("/cleanup/logs", h.Admin.GetDeleteLogs)
			admin.DELETE("/properties/:id", h.Admin.DeleteProperty)

			admin.GET("/changes/recent", h.Admin.GetRecentChanges)

			if h.Keyword != nil {
				admin.POST("/search/reindex", h.Keyword.Reindex)
			}
		}
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}
