// Preference HTTP handlers.
//
// This file exposes per-user settings storage:
//   - GET    /api/preferences  (all preferences as a key/value map)
//   - PUT    /api/preferences  (upsert a single preference)
//   - DELETE /api/preferences  (reset all preferences)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/services"
)

// PutPreferenceRequest is the JSON payload for saving one preference.
type PutPreferenceRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value"`
}

// GetPreferences returns all of the caller's preferences.
func (h *Handlers) GetPreferences(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	prefs, err := h.prefs.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load preferences")
		return
	}
	ok(c, http.StatusOK, gin.H{"preferences": prefs})
}

// PutPreference upserts a single preference.
func (h *Handlers) PutPreference(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	var req PutPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "key required")
		return
	}

	if err := h.prefs.Save(c.Request.Context(), uid, req.Key, req.Value); err != nil {
		if errors.Is(err, services.ErrInvalidPreference) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save preference")
		return
	}
	noContent(c)
}

// ResetPreferences removes every stored preference for the caller. The
// confirm=true query parameter is mandatory, as for scan deletion.
func (h *Handlers) ResetPreferences(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	if !strings.EqualFold(c.Query("confirm"), "true") {
		fail(c, http.StatusBadRequest, ErrCodeConfirmRequired, "reset requires confirm=true")
		return
	}

	if err := h.prefs.Reset(c.Request.Context(), uid); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not reset preferences")
		return
	}
	noContent(c)
}
