// Package dashboard serves the browser-facing pieces: the static shell, the
// scene snapshot, the live activity stream and the activity chart.
package dashboard

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/neurosphere/internal/feed"
	"github.com/ziadkadry99/neurosphere/internal/logging"
)

// Dashboard exposes the feed to browsers.
type Dashboard struct {
	feed *feed.Feed
	log  *zap.Logger
}

// New creates a new Dashboard.
func New(f *feed.Feed, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		feed: f,
		log:  logging.OrNop(logger).With(zap.String("component", "dashboard")),
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/scene", d.handleScene)
	r.Get("/charts/activity", d.handleActivityChart)
}

// RegisterStream mounts the websocket stream. It is kept apart from the
// other routes so it can live outside request timeouts.
func (d *Dashboard) RegisterStream(r chi.Router) {
	r.Get("/ws/activity", d.handleActivityStream)
}
