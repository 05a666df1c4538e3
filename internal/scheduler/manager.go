package scheduler

import (
	"errors"
	"log"
	"time"

	"github.com/aniplay/aniplay/internal/library"
)

// Manager triggers a periodic library refresh. A refresh that collides with
// a manual run is simply skipped; the next tick retries.
type Manager struct {
	sync     *library.Synchronizer
	interval time.Duration
	ticker   *time.Ticker
	quit     chan struct{}
}

func NewManager(sync *library.Synchronizer, interval time.Duration) *Manager {
	return &Manager{
		sync:     sync,
		interval: interval,
		quit:     make(chan struct{}),
	}
}

func (m *Manager) Start() {
	if m.interval <= 0 {
		log.Println("Scheduler disabled (rescan_interval is 0)")
		return
	}
	m.ticker = time.NewTicker(m.interval)
	log.Printf("Scheduler started, refreshing every %s", m.interval)
	go func() {
		for {
			select {
			case <-m.ticker.C:
				m.runRefresh()
			case <-m.quit:
				m.ticker.Stop()
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	close(m.quit)
	log.Println("Scheduler stopped.")
}

func (m *Manager) runRefresh() {
	log.Println("Scheduler: starting periodic refresh")
	report, err := m.sync.Refresh()
	if errors.Is(err, library.ErrSyncInProgress) {
		log.Println("Scheduler: a run is already in progress, skipping")
		return
	}
	if err != nil {
		log.Printf("Scheduler: refresh failed: %v", err)
		return
	}
	log.Printf("Scheduler: refresh done, %d added, %d updated, %d removed",
		report.Added, report.Updated, report.Removed)
}
