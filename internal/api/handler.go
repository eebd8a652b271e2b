package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meypark-backend/internal/dispatch"
	"meypark-backend/internal/state"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      *state.Store
	dispatcher *dispatch.Dispatcher
	db         *gorm.DB
	webpush    *webpush.Options
	log        *zap.Logger
}

// NewHandler creates a new API handler. db backs the push subscriptions and may
// be nil when alerts are disabled.
func NewHandler(s *state.Store, d *dispatch.Dispatcher, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:      s,
		dispatcher: d,
		db:         db,
		webpush:    webpushOptions,
		log:        log,
	}
}
