package api

import (
	"net/http"

	"sms-gateway/internal/watcher"

	"github.com/gin-gonic/gin"
)

type FolderHandler struct {
	watcher *watcher.Watcher
}

func NewFolderHandler(w *watcher.Watcher) *FolderHandler {
	return &FolderHandler{watcher: w}
}

// ProcessFile runs one pending file immediately instead of waiting for the next tick.
func (h *FolderHandler) ProcessFile(c *gin.Context) {
	n, err := h.watcher.ProcessFile(c.Request.Context(), c.Param("folder"), c.Param("file"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatched": n})
}

func (h *FolderHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"started":  h.watcher.Started(),
		"running":  h.watcher.Running(),
		"root":     h.watcher.Root(),
		"interval": h.watcher.Interval().String(),
	})
}
