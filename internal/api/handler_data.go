package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meypark-backend/internal/apperr"
)

// GetData handles GET /api/data.
func (h *Handler) GetData(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// ListMeters handles GET /api/parking-meters.
func (h *Handler) ListMeters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "meters": h.store.Meters()})
}

// GetMeter handles GET /api/parking-meters/:id.
func (h *Handler) GetMeter(c *gin.Context) {
	m, err := h.store.Meter(c.Param("id"))
	if err != nil {
		c.JSON(statusOf(err), gin.H{"success": false, "error": apperr.PublicMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "meter": m})
}

func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAlreadyProcessed:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
