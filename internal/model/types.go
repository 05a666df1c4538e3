package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Status is the airing status of an anime.
type Status string

const (
	StatusFinished    Status = "Finished"
	StatusOngoing     Status = "Ongoing"
	StatusNotYetAired Status = "NotYetAired"
	StatusCancelled   Status = "Cancelled"
	StatusUnknown     Status = "Unknown"
)

// DefaultDescription is stored when the metadata lookup yields no synopsis.
const DefaultDescription = "No description available."

// MaxGenres caps the genre list kept on a record.
const MaxGenres = 6

// Anime is one library entry, keyed by its folder name under the library
// root. The ID is assigned on first insert and never changes; Path is the
// unique natural key.
type Anime struct {
	gorm.Model
	Title       string  `json:"title"`
	Path        string  `json:"path" gorm:"uniqueIndex"` // folder name under the library root
	Cover       string  `json:"cover"`                   // local cover filename, empty if none
	ImageURL    string  `json:"image_url"`               // last-seen remote image reference, for refresh change detection
	Description string  `json:"description"`
	Score       float64 `json:"score"`    // 0-10, 0 = unknown
	Episodes    int     `json:"episodes"` // 0 = unknown
	Status      Status  `json:"status"`
	Genres      string  `json:"-"` // comma-joined, use GenreList/SetGenres
	Year        *int    `json:"year"`
}

// GenreList splits the stored genre string back into a list. Callers never
// see the delimited form.
func (a *Anime) GenreList() []string {
	if a.Genres == "" {
		return []string{}
	}
	return strings.Split(a.Genres, ",")
}

// SetGenres stores at most MaxGenres genres, preserving order.
func (a *Anime) SetGenres(genres []string) {
	if len(genres) > MaxGenres {
		genres = genres[:MaxGenres]
	}
	a.Genres = strings.Join(genres, ",")
}

// WatchHistory records playback progress. At most one row exists per
// (AnimeID, EpisodePath) pair; later writes overwrite earlier ones.
type WatchHistory struct {
	gorm.Model
	AnimeID     uint      `json:"anime_id" gorm:"index"`
	EpisodePath string    `json:"episode_path"`
	Position    float64   `json:"position"` // seconds
	Duration    float64   `json:"duration"` // seconds
	WatchedAt   time.Time `json:"watched_at"`
}
