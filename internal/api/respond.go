package api

import (
	"errors"
	"net/http"
	"strconv"

	"sms-gateway/internal/apperr"

	"github.com/gin-gonic/gin"
)

// SenderHeader carries the id of the operator on whose behalf messages are sent.
const SenderHeader = "X-Sender-ID"

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// senderID reads SenderHeader, falling back to def when it is absent.
func senderID(c *gin.Context, def uint) (uint, error) {
	raw := c.GetHeader(SenderHeader)
	if raw == "" {
		return def, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.E(apperr.ErrValidation, "invalid %s %q", SenderHeader, raw)
	}
	return uint(id), nil
}
