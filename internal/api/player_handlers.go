package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

type loadRequest struct {
	Path string `json:"path" binding:"required"`
}

// LoadHandler asks the playback device to load a file. The path must live
// inside the library root; anything else is rejected.
func (h *Handlers) LoadHandler(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil || !filepath.IsLocal(relOrSelf(h.svc.LibraryRoot, abs)) {
		fail(c, http.StatusBadRequest, errors.New("path outside library root"))
		return
	}
	if err := h.svc.Player.Load(abs); err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	ok(c, nil)
}

func relOrSelf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ".."
	}
	return rel
}

func (h *Handlers) PlayHandler(c *gin.Context) {
	if err := h.svc.Player.Play(); err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	ok(c, nil)
}

func (h *Handlers) PauseHandler(c *gin.Context) {
	if err := h.svc.Player.Pause(); err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	ok(c, nil)
}

type seekRequest struct {
	Position float64 `json:"position"`
}

func (h *Handlers) SeekHandler(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.Player.Seek(req.Position); err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	ok(c, nil)
}

// StatusHandler reports the current playback position and duration.
func (h *Handlers) StatusHandler(c *gin.Context) {
	pos, err := h.svc.Player.Position()
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	dur, err := h.svc.Player.Duration()
	if err != nil {
		fail(c, http.StatusBadGateway, err)
		return
	}
	ok(c, gin.H{"position": pos, "duration": dur})
}
