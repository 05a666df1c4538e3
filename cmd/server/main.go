package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/aniplay/aniplay/internal/api"
	"github.com/aniplay/aniplay/internal/config"
	"github.com/aniplay/aniplay/internal/covers"
	"github.com/aniplay/aniplay/internal/db"
	"github.com/aniplay/aniplay/internal/event"
	"github.com/aniplay/aniplay/internal/library"
	"github.com/aniplay/aniplay/internal/metadata"
	"github.com/aniplay/aniplay/internal/player"
	"github.com/aniplay/aniplay/internal/scheduler"
	"github.com/aniplay/aniplay/internal/search"
	"github.com/aniplay/aniplay/internal/store"
	"github.com/aniplay/aniplay/internal/worker"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := config.LoadConfig("."); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	gin.SetMode(cfg.Server.Mode)

	absDB, _ := filepath.Abs(cfg.Database.Path)
	log.Printf("Initializing database at: %s", absDB)
	db.InitDB(cfg.Database.Path)

	libraryRoot, err := filepath.Abs(cfg.Library.Root)
	if err != nil {
		log.Fatalf("Failed to resolve library root: %v", err)
	}

	provider := metadata.NewAniListClient(cfg.Metadata.ProxyURL, cfg.Metadata.Timeout)

	coverCache, err := covers.NewCache(cfg.Library.CoversDir, provider)
	if err != nil {
		log.Fatalf("Failed to prepare covers directory: %v", err)
	}

	catalog := store.NewCatalog(db.DB)
	index := search.NewIndex()
	sync := library.NewSynchronizer(libraryRoot, catalog, provider, coverCache, index, event.GlobalBus, cfg.Metadata.RequestDelay)
	if err := sync.RebuildIndex(); err != nil {
		log.Fatalf("Failed to build search index: %v", err)
	}

	transport := player.NewMPV(cfg.Player.SocketPath, cfg.Player.Timeout)

	svc := &api.Services{
		Sync:        sync,
		Catalog:     catalog,
		Player:      player.NewController(transport),
		Bus:         event.GlobalBus,
		LibraryRoot: libraryRoot,
		CoversRoot:  coverCache.Root(),
	}

	worker.StartSyncWorker(event.GlobalBus)

	r := gin.Default()
	api.InitRoutes(r, svc)

	sch := scheduler.NewManager(sync, cfg.Scheduler.RescanInterval)
	sch.Start()
	defer sch.Stop()

	port := fmt.Sprintf("%d", cfg.Server.Port)
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
