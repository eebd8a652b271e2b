package relay

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meypark-backend/internal/logging"
	"meypark-backend/internal/metrics"
	"meypark-backend/internal/mw"
)

// RouterConfig carries the relay HTTP settings.
type RouterConfig struct {
	WebDir  string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewRouter serves the realtime channel at / and /ws for websocket upgrades,
// the dashboard files otherwise.
func NewRouter(r *Relay, ws http.Handler, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e := gin.New()
	e.Use(logging.GinMiddleware(log), logging.GinRecovery(log), mw.CORS())

	e.GET("/ws", gin.WrapH(ws))
	e.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	e.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	e.GET("/api/kiosk", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Kiosk())
	})

	dashboard := func(c *gin.Context) {
		if c.IsWebsocket() {
			ws.ServeHTTP(c.Writer, c.Request)
			return
		}
		serveFile(c, cfg.WebDir, "dashboard.html", "Dashboard no encontrado")
	}
	e.GET("/", dashboard)
	e.GET("/dashboard", dashboard)

	e.NoRoute(func(c *gin.Context) {
		switch path := c.Request.URL.Path; {
		case strings.HasSuffix(path, ".css"):
			serveFile(c, cfg.WebDir, "dashboard.css", "CSS no encontrado")
		case strings.HasSuffix(path, ".js"):
			serveFile(c, cfg.WebDir, "dashboard.js", "JS no encontrado")
		default:
			c.String(http.StatusNotFound, "Archivo no encontrado")
		}
	})
	return e
}

func serveFile(c *gin.Context, dir, name, notFound string) {
	path := filepath.Join(dir, name)
	if dir == "" {
		c.String(http.StatusNotFound, notFound)
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, notFound)
		return
	}
	c.File(path)
}
