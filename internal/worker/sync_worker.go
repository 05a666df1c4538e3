package worker

import (
	"log"

	"github.com/aniplay/aniplay/internal/event"
	"github.com/aniplay/aniplay/internal/library"
)

// StartSyncWorker subscribes to sync completions and logs a digest of each
// run; per-folder failures would otherwise only be visible to the one caller
// that received the report.
func StartSyncWorker(bus event.Bus) {
	bus.Subscribe(event.EventSyncComplete, func(e event.Event) {
		report, ok := e.Payload.(*library.SyncReport)
		if !ok {
			return
		}
		for _, se := range report.Errors {
			log.Printf("Worker: folder %q failed: %s", se.Folder, se.Error)
		}
		if len(report.Errors) == 0 {
			log.Printf("Worker: sync finished cleanly (%d/%d folders)", report.Processed, report.Total)
		}
	})
}
