package store

import (
	"errors"
	"time"

	"github.com/aniplay/aniplay/internal/model"
	"gorm.io/gorm"
)

var (
	// ErrDuplicatePath is returned by Insert when a record already holds the path.
	ErrDuplicatePath = errors.New("store: record already exists at path")
	// ErrStoreUnavailable is returned when the catalog has no database handle.
	ErrStoreUnavailable = errors.New("store: database not initialized")
)

// Catalog is the single source of truth for anime records. Upsert keyed by
// path is the canonical idempotent write; Insert exists for callers that
// want a collision to be an error. All operations are atomic per record.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(gdb *gorm.DB) *Catalog {
	return &Catalog{db: gdb}
}

func (c *Catalog) Insert(anime *model.Anime) (*model.Anime, error) {
	if c.db == nil {
		return nil, ErrStoreUnavailable
	}
	existing, err := c.FindByPath(anime.Path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicatePath
	}
	if err := c.db.Create(anime).Error; err != nil {
		return nil, err
	}
	return anime, nil
}

// Upsert inserts or overwrites the record stored under anime.Path. The
// surrogate ID and CreatedAt of an existing record are preserved.
func (c *Catalog) Upsert(anime *model.Anime) (*model.Anime, error) {
	if c.db == nil {
		return nil, ErrStoreUnavailable
	}
	existing, err := c.FindByPath(anime.Path)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := c.db.Create(anime).Error; err != nil {
			return nil, err
		}
		return anime, nil
	}
	anime.ID = existing.ID
	anime.CreatedAt = existing.CreatedAt
	if err := c.db.Save(anime).Error; err != nil {
		return nil, err
	}
	return anime, nil
}

// FindByPath returns nil without error when no record holds the path.
func (c *Catalog) FindByPath(path string) (*model.Anime, error) {
	if c.db == nil {
		return nil, ErrStoreUnavailable
	}
	var anime model.Anime
	err := c.db.Where("path = ?", path).First(&anime).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &anime, nil
}

// FindByID returns nil without error when the record is absent.
func (c *Catalog) FindByID(id uint) (*model.Anime, error) {
	if c.db == nil {
		return nil, ErrStoreUnavailable
	}
	var anime model.Anime
	err := c.db.First(&anime, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &anime, nil
}

// ListAll returns every record ordered by title ascending.
func (c *Catalog) ListAll() ([]model.Anime, error) {
	if c.db == nil {
		return nil, ErrStoreUnavailable
	}
	var animes []model.Anime
	if err := c.db.Order("title").Find(&animes).Error; err != nil {
		return nil, err
	}
	return animes, nil
}

func (c *Catalog) Remove(id uint) error {
	if c.db == nil {
		return ErrStoreUnavailable
	}
	return c.db.Unscoped().Delete(&model.Anime{}, id).Error
}

// Clear wipes every anime record. Covers on disk are left in place, they
// are cheap to recompute on the next scan.
func (c *Catalog) Clear() error {
	if c.db == nil {
		return ErrStoreUnavailable
	}
	return c.db.Unscoped().Where("1 = 1").Delete(&model.Anime{}).Error
}

// RecordWatch upserts playback progress for the (animeID, episodePath)
// pair. Last write wins.
func (c *Catalog) RecordWatch(animeID uint, episodePath string, position, duration float64) error {
	if c.db == nil {
		return ErrStoreUnavailable
	}
	var entry model.WatchHistory
	err := c.db.Where("anime_id = ? AND episode_path = ?", animeID, episodePath).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = model.WatchHistory{
			AnimeID:     animeID,
			EpisodePath: episodePath,
			Position:    position,
			Duration:    duration,
			WatchedAt:   time.Now(),
		}
		return c.db.Create(&entry).Error
	}
	if err != nil {
		return err
	}
	entry.Position = position
	entry.Duration = duration
	entry.WatchedAt = time.Now()
	return c.db.Save(&entry).Error
}

// History lists watch entries for one anime, most recent first.
func (c *Catalog) History(animeID uint) ([]model.WatchHistory, error) {
	if c.db == nil {
		return nil, ErrStoreUnavailable
	}
	var entries []model.WatchHistory
	if err := c.db.Where("anime_id = ?", animeID).Order("watched_at desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
