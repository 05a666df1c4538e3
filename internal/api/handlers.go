package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aniplay/aniplay/internal/library"
	"github.com/aniplay/aniplay/internal/model"
	"github.com/gin-gonic/gin"
)

// ok and fail are the only two shapes that cross the API boundary; no
// handler lets an error escape uncaught.
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// animeResponse is the API representation of a record: genres are always a
// list, never the stored delimited string.
type animeResponse struct {
	ID          uint         `json:"id"`
	Title       string       `json:"title"`
	Path        string       `json:"path"`
	Cover       string       `json:"cover"`
	Description string       `json:"description"`
	Score       float64      `json:"score"`
	Episodes    int          `json:"episodes"`
	Status      model.Status `json:"status"`
	Genres      []string     `json:"genres"`
	Year        *int         `json:"year"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func toResponse(a model.Anime) animeResponse {
	return animeResponse{
		ID:          a.ID,
		Title:       a.Title,
		Path:        a.Path,
		Cover:       a.Cover,
		Description: a.Description,
		Score:       a.Score,
		Episodes:    a.Episodes,
		Status:      a.Status,
		Genres:      a.GenreList(),
		Year:        a.Year,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toResponseList(animes []model.Anime) []animeResponse {
	out := make([]animeResponse, len(animes))
	for i, a := range animes {
		out[i] = toResponse(a)
	}
	return out
}

// ScanHandler runs a library scan and returns its report.
func (h *Handlers) ScanHandler(c *gin.Context) {
	report, err := h.svc.Sync.Scan()
	h.reportResponse(c, report, err)
}

// RefreshHandler runs a full refresh (scan + update + removal).
func (h *Handlers) RefreshHandler(c *gin.Context) {
	report, err := h.svc.Sync.Refresh()
	h.reportResponse(c, report, err)
}

// ResetHandler clears the catalog and rescans from empty.
func (h *Handlers) ResetHandler(c *gin.Context) {
	report, err := h.svc.Sync.Reset()
	h.reportResponse(c, report, err)
}

func (h *Handlers) reportResponse(c *gin.Context, report *library.SyncReport, err error) {
	if errors.Is(err, library.ErrSyncInProgress) {
		fail(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, report)
}

// SearchHandler answers fuzzy queries; a blank query returns the whole
// library in title order.
func (h *Handlers) SearchHandler(c *gin.Context) {
	query := c.Query("q")
	ok(c, toResponseList(h.svc.Sync.SearchLibrary(query)))
}

func (h *Handlers) ListAnimeHandler(c *gin.Context) {
	animes, err := h.svc.Catalog.ListAll()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, toResponseList(animes))
}

func (h *Handlers) GetAnimeHandler(c *gin.Context) {
	anime, httpErr := h.animeFromParam(c)
	if httpErr {
		return
	}
	ok(c, toResponse(*anime))
}

// EpisodesHandler lists the playable files of one anime, freshly scanned.
func (h *Handlers) EpisodesHandler(c *gin.Context) {
	anime, httpErr := h.animeFromParam(c)
	if httpErr {
		return
	}
	eps, err := h.svc.Sync.Episodes(anime.Path)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, eps)
}

// EpisodesByPathHandler is the folder-keyed variant used before a record id
// is known.
func (h *Handlers) EpisodesByPathHandler(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		fail(c, http.StatusBadRequest, errors.New("path query parameter required"))
		return
	}
	eps, err := h.svc.Sync.Episodes(path)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, eps)
}

type watchRequest struct {
	EpisodePath string  `json:"episode_path" binding:"required"`
	Position    float64 `json:"position"`
	Duration    float64 `json:"duration"`
}

// RecordWatchHandler upserts playback progress for one episode.
func (h *Handlers) RecordWatchHandler(c *gin.Context) {
	anime, httpErr := h.animeFromParam(c)
	if httpErr {
		return
	}

	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.Catalog.RecordWatch(anime.ID, req.EpisodePath, req.Position, req.Duration); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, nil)
}

func (h *Handlers) HistoryHandler(c *gin.Context) {
	anime, httpErr := h.animeFromParam(c)
	if httpErr {
		return
	}
	entries, err := h.svc.Catalog.History(anime.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, entries)
}

// animeFromParam resolves the :id route parameter. A missing record answers
// 404 with the standard envelope; the caller just returns on httpErr.
func (h *Handlers) animeFromParam(c *gin.Context) (*model.Anime, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("invalid id"))
		return nil, true
	}
	anime, err := h.svc.Catalog.FindByID(uint(id))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return nil, true
	}
	if anime == nil {
		fail(c, http.StatusNotFound, errors.New("anime not found"))
		return nil, true
	}
	return anime, false
}
