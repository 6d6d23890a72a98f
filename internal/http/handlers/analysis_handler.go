// Image analysis HTTP handlers.
//
// This file exposes the skin analysis endpoint:
//   - POST /disease-detection  (multipart image upload, classify, persist)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, key), the handler returns the recorded result and
// sets `Idempotency-Replayed: true` without contacting the classifier.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/analysis"
	"github.com/dermacare/go-derma-backend/internal/http/middleware"
)

// AnalysisResponse is the JSON envelope for a completed analysis. Condition
// is the raw classifier label; DisplayLabel is the human-readable form.
type AnalysisResponse struct {
	Condition      string `json:"condition"`
	DisplayLabel   string `json:"display_label"`
	Recommendation string `json:"recommendation"`
}

// Analyze accepts a multipart image under the "image" field, classifies it,
// and returns the detected condition with a recommendation. Successful
// results are persisted to the caller's scan history asynchronously.
func (h *Handlers) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)

	// Replay path: serve the stored result without re-running the model.
	if idemKey != "" && middleware.IsReplay(c) && h.replays != nil {
		if raw, found := h.replays.Lookup(ctx, uid, idemKey, time.Now().UTC()); found {
			var resp AnalysisResponse
			if err := json.Unmarshal([]byte(raw), &resp); err == nil {
				c.Header("Idempotency-Replayed", "true")
				middleware.AnalysisOutcomes.WithLabelValues("replayed").Inc()
				ok(c, http.StatusOK, resp)
				return
			}
		}
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable image upload")
		return
	}
	contentType := header.Header.Get("Content-Type")

	wf := h.workflowFor(uid)
	if !wf.SelectImage(header.Filename, contentType, data) {
		middleware.AnalysisOutcomes.WithLabelValues("rejected").Inc()
		fail(c, http.StatusBadRequest, ErrCodeInvalidImage, "only image uploads are accepted")
		return
	}

	res, err := wf.Analyze(ctx, uid)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrSuperseded):
			middleware.AnalysisOutcomes.WithLabelValues("rejected").Inc()
			fail(c, http.StatusConflict, ErrCodeConflict, "superseded by a newer analysis")
		case errors.Is(err, analysis.ErrNoImage):
			fail(c, http.StatusBadRequest, ErrCodeInvalidImage, "no image selected")
		default:
			middleware.AnalysisOutcomes.WithLabelValues("failed").Inc()
			fail(c, http.StatusBadGateway, ErrCodeAnalysisFailed, analysis.AnalysisFailedMessage)
		}
		return
	}

	resp := AnalysisResponse{
		Condition:      res.PredictedCondition,
		DisplayLabel:   analysis.FormatConditionLabel(res.PredictedCondition),
		Recommendation: res.Recommendation,
	}

	// Store path: best effort, replay failures never block the response.
	if idemKey != "" && h.replays != nil {
		if raw, err := json.Marshal(resp); err == nil {
			h.replays.Record(ctx, uid, idemKey, string(raw), http.StatusOK)
		}
	}

	middleware.AnalysisOutcomes.WithLabelValues("ok").Inc()
	ok(c, http.StatusOK, resp)
}

// AnalysisResult returns the caller's most recent completed analysis, or 404
// when none exists yet.
func (h *Handlers) AnalysisResult(c *gin.Context) {
	uid, proceed := requireUser(c)
	if !proceed {
		return
	}

	res := h.workflowFor(uid).Result()
	if res == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no analysis result")
		return
	}
	ok(c, http.StatusOK, AnalysisResponse{
		Condition:      res.PredictedCondition,
		DisplayLabel:   analysis.FormatConditionLabel(res.PredictedCondition),
		Recommendation: res.Recommendation,
	})
}
