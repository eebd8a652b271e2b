package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"meypark-backend/internal/logging"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/mw"
)

// RouterConfig carries the HTTP middleware settings.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

// NewRouter builds the centralized backend's router. ws serves the realtime channel.
func NewRouter(h *Handler, ws http.Handler, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(logging.GinMiddleware(log), logging.GinRecovery(log), mw.CORS())

	r.GET("/ws", gin.WrapH(ws))
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	limit := rate.Limit(cfg.RateLimitPerSec)
	if cfg.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	api := r.Group("/api")
	api.Use(mw.RateLimiter(limit, cfg.RateLimitBurst))
	{
		api.GET("/data", h.GetData)

		api.PUT("/companies", h.PutCompany)
		api.PUT("/zones", h.PutZone)
		api.DELETE("/zones", h.DeleteZone)

		api.GET("/parking-meters", h.ListMeters)
		api.PUT("/parking-meters", h.PutMeter)
		api.GET("/parking-meters/:id", h.GetMeter)
		api.POST("/parking-meters/assign-company", h.AssignCompany)
		api.PUT("/parking-meters/status", h.PutMeterStatus)
		api.PUT("/parking-meters/screen", h.PutMeterScreen)

		api.POST("/commands", h.PostCommand)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint no encontrado"})
	})
	return r
}
