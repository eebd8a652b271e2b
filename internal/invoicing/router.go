package invoicing

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
	WebDir          string
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

// NewRouter builds the invoicing service router. cache backs GET /api/stats.
func NewRouter(h *Handler, cache *mw.ResponseCache, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(logging.GinMiddleware(log), logging.GinRecovery(log), mw.CORS())

	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/invoices/:filename", h.GetDocument)

	limit := rate.Limit(cfg.RateLimitPerSec)
	if cfg.RateLimitPerSec <= 0 {
		limit = rate.Inf
	}
	api := r.Group("/api")
	api.Use(mw.RateLimiter(limit, cfg.RateLimitBurst))
	{
		api.GET("/transaction/:id", h.GetTransaction)
		api.POST("/generate-invoice", h.GenerateInvoice)
		api.GET("/invoice-status/:transactionId", h.GetInvoiceStatus)
		api.POST("/transactions", h.PostTransaction)
		api.POST("/create-test-transaction", h.PostTestTransaction)
		if cache != nil {
			api.GET("/stats", cache.Handler(), h.GetStats)
		} else {
			api.GET("/stats", h.GetStats)
		}
	}

	// The billing portal pages are served from the web directory.
	if cfg.WebDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.WebDir))))
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint no encontrado"})
		})
	}
	return r
}
