// Scan history HTTP handlers.
//
// This file exposes the scan history endpoints:
//   - GET    /api/scans       (list the caller's scans, newest first)
//   - POST   /api/scans       (store a scan record)
//   - DELETE /api/scans/:id   (delete one scan, confirmation required)
//
// Deletion is destructive, so the client must send confirm=true; without it
// the request is rejected before the store is contacted.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/domain"
	"github.com/dermacare/go-derma-backend/internal/history"
)

//
// DTOs
//

// SaveScanRequest is the JSON payload for storing a scan. Timestamp accepts
// an RFC3339 string or a Unix epoch (seconds or milliseconds); when absent
// the server time is used.
type SaveScanRequest struct {
	ImageData       string `json:"image_data" binding:"required"`
	DetectedDisease string `json:"detected_disease"`
	Recommendation  string `json:"recommendation"`
	Timestamp       any    `json:"timestamp,omitempty"`
}

// SaveScanResponse confirms persistence and echoes the record ID.
type SaveScanResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ListScansResponse wraps the caller's scan records. ExpandedID names the
// scan the caller currently has open, or "" when none is.
type ListScansResponse struct {
	Scans      []domain.ScanRecord `json:"scans"`
	Count      int                 `json:"count"`
	ExpandedID string              `json:"expanded_id,omitempty"`
}

// ExpandScanResponse reports the expanded-scan marker after a toggle.
type ExpandScanResponse struct {
	ExpandedID string `json:"expanded_id"`
}

//
// Handlers
//

// ListScans returns the caller's scan history, newest first.
func (h *Handlers) ListScans(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	scans, err := h.store.ListScans(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load scan history")
		return
	}
	if scans == nil {
		scans = []domain.ScanRecord{}
	}
	ok(c, http.StatusOK, ListScansResponse{
		Scans:      scans,
		Count:      len(scans),
		ExpandedID: h.expandedFor(uid),
	})
}

// ExpandScan toggles the caller's expanded-scan marker: expanding a second
// scan replaces the first, expanding the current one collapses it.
func (h *Handlers) ExpandScan(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scan id required")
		return
	}
	ok(c, http.StatusOK, ExpandScanResponse{ExpandedID: h.toggleExpanded(uid, id)})
}

// SaveScan stores a scan record for the caller.
func (h *Handlers) SaveScan(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	var req SaveScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image_data required")
		return
	}

	rec := domain.ScanRecord{
		UserID:          uid,
		ImageData:       req.ImageData,
		DetectedDisease: req.DetectedDisease,
		Recommendation:  req.Recommendation,
		CreatedAt:       history.NormalizeTimestamp(req.Timestamp, time.Now().UTC()),
	}

	id, err := h.store.SaveScan(c.Request.Context(), rec)
	if err != nil {
		switch {
		case errors.Is(err, history.ErrEmptyImage), errors.Is(err, history.ErrMissingUser):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save scan")
		}
		return
	}

	ok(c, http.StatusCreated, SaveScanResponse{Message: "Scan saved", ID: id})
}

// DeleteScan removes a single scan. The confirm=true query parameter is
// mandatory; deleting an already-absent scan still succeeds.
func (h *Handlers) DeleteScan(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	if !strings.EqualFold(c.Query("confirm"), "true") {
		fail(c, http.StatusBadRequest, ErrCodeConfirmRequired, "deletion requires confirm=true")
		return
	}

	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scan id required")
		return
	}

	if err := h.store.DeleteScan(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete scan")
		return
	}
	h.clearExpandedIf(uid, id)
	noContent(c)
}
