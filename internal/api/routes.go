package api

import (
	"github.com/aniplay/aniplay/internal/event"
	"github.com/aniplay/aniplay/internal/library"
	"github.com/aniplay/aniplay/internal/player"
	"github.com/aniplay/aniplay/internal/store"
	"github.com/gin-gonic/gin"
)

// Services carries everything the handlers need, constructed once in main
// and injected here instead of living as package globals.
type Services struct {
	Sync        *library.Synchronizer
	Catalog     *store.Catalog
	Player      *player.Controller
	Bus         event.Bus
	LibraryRoot string
	CoversRoot  string
}

type Handlers struct {
	svc *Services
}

func InitRoutes(r *gin.Engine, svc *Services) {
	h := &Handlers{svc: svc}

	// Covers are referenced by filename only; the single covers root is the
	// one place they resolve against.
	r.Static("/covers", svc.CoversRoot)

	apiGroup := r.Group("/api")
	{
		// Library synchronization
		apiGroup.POST("/library/scan", h.ScanHandler)
		apiGroup.POST("/library/refresh", h.RefreshHandler)
		apiGroup.POST("/library/reset", h.ResetHandler)
		apiGroup.GET("/library/search", h.SearchHandler)
		apiGroup.GET("/episodes", h.EpisodesByPathHandler)

		// Records
		apiGroup.GET("/anime", h.ListAnimeHandler)
		apiGroup.GET("/anime/:id", h.GetAnimeHandler)
		apiGroup.GET("/anime/:id/episodes", h.EpisodesHandler)
		apiGroup.POST("/anime/:id/watch", h.RecordWatchHandler)
		apiGroup.GET("/anime/:id/history", h.HistoryHandler)

		// Playback transport
		apiGroup.POST("/player/load", h.LoadHandler)
		apiGroup.POST("/player/play", h.PlayHandler)
		apiGroup.POST("/player/pause", h.PauseHandler)
		apiGroup.POST("/player/seek", h.SeekHandler)
		apiGroup.GET("/player/status", h.StatusHandler)

		// Push channel
		apiGroup.GET("/events", h.SSEHandler)
	}
}
