package library

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aniplay/aniplay/internal/covers"
	"github.com/aniplay/aniplay/internal/episodes"
	"github.com/aniplay/aniplay/internal/event"
	"github.com/aniplay/aniplay/internal/metadata"
	"github.com/aniplay/aniplay/internal/model"
	"github.com/aniplay/aniplay/internal/search"
	"github.com/aniplay/aniplay/internal/store"
)

// ErrSyncInProgress is returned when a run is triggered while another run
// holds the library. Runs are strictly serialized; the flag is also the
// natural extension point for cooperative cancellation between folders.
var ErrSyncInProgress = errors.New("library: synchronization already running")

// Synchronizer reconciles the on-disk folder set against the catalog. One
// logical worker drives each run and folders are processed sequentially on
// purpose: the metadata provider imposes a politeness delay between lookups.
type Synchronizer struct {
	root     string
	catalog  *store.Catalog
	provider metadata.Provider
	covers   *covers.Cache
	index    *search.Index
	bus      event.Bus
	delay    time.Duration

	runMu sync.Mutex // held for the duration of one run
}

func NewSynchronizer(root string, catalog *store.Catalog, provider metadata.Provider, coverCache *covers.Cache, index *search.Index, bus event.Bus, delay time.Duration) *Synchronizer {
	return &Synchronizer{
		root:     root,
		catalog:  catalog,
		provider: provider,
		covers:   coverCache,
		index:    index,
		bus:      bus,
		delay:    delay,
	}
}

// Scan adds a record for every library folder not yet in the catalog.
// Folders already present are left untouched, so re-running a scan over an
// unchanged folder set performs zero writes.
func (s *Synchronizer) Scan() (*SyncReport, error) {
	if !s.runMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runMu.Unlock()
	return s.scan(false)
}

// Refresh is a superset of Scan: it also removes records whose folder is
// gone and re-fetches metadata for existing records, never regressing a
// populated field to empty.
func (s *Synchronizer) Refresh() (*SyncReport, error) {
	if !s.runMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runMu.Unlock()

	s.bus.Publish(event.EventSyncStarted, map[string]interface{}{"mode": "refresh"})

	folders, err := s.listFolders()
	if err != nil {
		return nil, err
	}

	report := newReport()
	report.Total = len(folders)

	present := make(map[string]bool, len(folders))
	for _, f := range folders {
		present[f] = true
	}

	// Remove records whose folder vanished, and no others.
	existing, err := s.catalog.ListAll()
	if err != nil {
		return nil, err
	}
	for _, anime := range existing {
		if present[anime.Path] {
			continue
		}
		log.Printf("Library: removing %q, folder is gone", anime.Title)
		if err := s.catalog.Remove(anime.ID); err != nil {
			report.fail(anime.Path, err)
			continue
		}
		report.Removed++
	}

	for i, folder := range folders {
		s.publishProgress(folder, i+1, report.Total)

		current, err := s.catalog.FindByPath(folder)
		if err != nil {
			return nil, err
		}
		if current == nil {
			s.processNewFolder(folder, report)
		} else {
			s.refreshExisting(current, report)
		}
		report.Processed++
	}

	s.finishRun(report)
	return report, nil
}

// Reset clears the catalog and scans from scratch. Covers on disk are kept,
// they are content-addressed by title and cheap to reuse.
func (s *Synchronizer) Reset() (*SyncReport, error) {
	if !s.runMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runMu.Unlock()

	if err := s.catalog.Clear(); err != nil {
		return nil, err
	}
	log.Println("Library: catalog cleared, rescanning")

	report, err := s.scan(true)
	if err != nil {
		return nil, err
	}
	report.Reset = true
	return report, nil
}

// SearchLibrary delegates to the search index. A blank query returns the
// full cached list in title order.
func (s *Synchronizer) SearchLibrary(query string) []model.Anime {
	return s.index.Query(query)
}

// Episodes lists the playable files of one library folder, freshly scanned.
func (s *Synchronizer) Episodes(folder string) ([]episodes.Episode, error) {
	dir := filepath.Join(s.root, filepath.Base(folder))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return []episodes.Episode{}, nil
	}
	return episodes.List(dir)
}

// RebuildIndex reloads the search snapshot from the catalog. Called once at
// startup and after every mutating run.
func (s *Synchronizer) RebuildIndex() error {
	records, err := s.catalog.ListAll()
	if err != nil {
		return err
	}
	s.index.Rebuild(records)
	return nil
}

// scan is the shared body of Scan and Reset. Caller holds runMu.
func (s *Synchronizer) scan(reset bool) (*SyncReport, error) {
	mode := "scan"
	if reset {
		mode = "reset"
	}
	s.bus.Publish(event.EventSyncStarted, map[string]interface{}{"mode": mode})

	folders, err := s.listFolders()
	if err != nil {
		return nil, err
	}

	report := newReport()
	report.Total = len(folders)

	for i, folder := range folders {
		s.publishProgress(folder, i+1, report.Total)

		existing, err := s.catalog.FindByPath(folder)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			report.Processed++
			continue
		}

		s.processNewFolder(folder, report)
		report.Processed++
	}

	s.finishRun(report)
	return report, nil
}

// processNewFolder looks the folder up with the provider and writes exactly
// one record for it: a real one when the lookup yields a usable title, a
// placeholder otherwise.
func (s *Synchronizer) processNewFolder(folder string, report *SyncReport) {
	result := s.provider.Search(folder)
	s.pause()

	anime := &model.Anime{
		Path:        folder,
		Title:       folder,
		Description: model.DefaultDescription,
		Status:      model.StatusUnknown,
	}

	if !result.Fallback && result.Title != "" {
		anime.Title = result.Title
		anime.Score = result.Score
		anime.Episodes = result.Episodes
		anime.Status = result.Status
		anime.Year = result.Year
		anime.SetGenres(result.Genres)
		if result.Synopsis != "" {
			anime.Description = result.Synopsis
		}
		if filename, err := s.covers.EnsureCover(result.Title, result.ImageURL); err != nil {
			report.fail(folder, err) // non-fatal, record proceeds coverless
		} else if filename != "" {
			anime.Cover = filename
			anime.ImageURL = result.ImageURL
		}
	} else {
		log.Printf("Library: no metadata for %q, adding placeholder", folder)
	}

	if _, err := s.catalog.Upsert(anime); err != nil {
		report.fail(folder, err)
		return
	}
	report.Added++
	log.Printf("Library: added %q (score %.1f)", anime.Title, anime.Score)
}

// refreshExisting re-fetches metadata for a stored record and overwrites
// fields only with non-empty, non-zero values.
func (s *Synchronizer) refreshExisting(anime *model.Anime, report *SyncReport) {
	result := s.provider.Search(anime.Path)
	s.pause()

	if result.Fallback || result.Title == "" {
		log.Printf("Library: no fresh metadata for %q, keeping stored record", anime.Title)
		return
	}

	changed := mergeResult(anime, result)

	if result.ImageURL != "" && (anime.Cover == "" || result.ImageURL != anime.ImageURL) {
		if anime.Cover != "" && result.ImageURL != anime.ImageURL {
			s.covers.Invalidate(anime.Title)
		}
		filename, err := s.covers.EnsureCover(anime.Title, result.ImageURL)
		if err != nil {
			report.fail(anime.Path, err) // keep the old cover
		} else if filename != "" {
			anime.Cover = filename
			anime.ImageURL = result.ImageURL
			changed = true
		}
	}

	if !changed {
		return
	}
	if _, err := s.catalog.Upsert(anime); err != nil {
		report.fail(anime.Path, err)
		return
	}
	report.Updated++
	log.Printf("Library: updated %q", anime.Title)
}

// mergeResult applies the no-regression rule: a populated stored field is
// never overwritten by an empty or zero incoming value.
func mergeResult(anime *model.Anime, result metadata.Result) bool {
	changed := false
	if result.Title != "" && result.Title != anime.Title {
		anime.Title = result.Title
		changed = true
	}
	if result.Synopsis != "" && result.Synopsis != anime.Description {
		anime.Description = result.Synopsis
		changed = true
	}
	if result.Score != 0 && result.Score != anime.Score {
		anime.Score = result.Score
		changed = true
	}
	if result.Episodes != 0 && result.Episodes != anime.Episodes {
		anime.Episodes = result.Episodes
		changed = true
	}
	if result.Status != model.StatusUnknown && result.Status != anime.Status {
		anime.Status = result.Status
		changed = true
	}
	if len(result.Genres) > 0 {
		old := anime.Genres
		anime.SetGenres(result.Genres)
		if anime.Genres != old {
			changed = true
		}
	}
	if result.Year != nil && (anime.Year == nil || *anime.Year != *result.Year) {
		anime.Year = result.Year
		changed = true
	}
	return changed
}

// listFolders enumerates the immediate subdirectories of the library root.
// Hidden entries are skipped. An unreadable root is fatal for the run.
func (s *Synchronizer) listFolders() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("library root unreadable: %w", err)
	}

	folders := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if name := entry.Name(); name != "" && name[0] != '.' {
			folders = append(folders, name)
		}
	}
	return folders, nil
}

// finishRun rebuilds the search snapshot and notifies observers.
func (s *Synchronizer) finishRun(report *SyncReport) {
	if err := s.RebuildIndex(); err != nil {
		log.Printf("Library: index rebuild failed: %v", err)
	}
	s.bus.Publish(event.EventLibraryChanged, nil)
	s.bus.Publish(event.EventSyncComplete, report)
	log.Printf("Library: run complete, %d added, %d updated, %d removed, %d/%d processed, %d errors",
		report.Added, report.Updated, report.Removed, report.Processed, report.Total, len(report.Errors))
}

func (s *Synchronizer) publishProgress(folder string, done, total int) {
	s.bus.Publish(event.EventSyncProgress, map[string]interface{}{
		"folder": folder,
		"done":   done,
		"total":  total,
	})
}

// pause is the politeness delay between successive provider lookups. Fixed,
// not adaptive.
func (s *Synchronizer) pause() {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}
