// FAQ HTTP handlers.
//
// This file exposes the help-content endpoints:
//   - GET /api/faq             (list entries, filterable by q and category)
//   - GET /api/faq/categories  (distinct categories in display order)
//   - GET /api/faq/answer      (best-matching answer for a free-text question)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/faq"
)

// FAQListResponse wraps the filtered FAQ entries.
type FAQListResponse struct {
	FAQs  []faq.Entry `json:"faqs"`
	Count int         `json:"count"`
}

// FAQAnswerResponse carries the best match for a free-text question.
type FAQAnswerResponse struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// FAQ lists entries, optionally narrowed by a substring query (q) and a
// category. "all" or an empty category returns every category.
func (h *Handlers) FAQ(c *gin.Context) {
	entries := h.faqIdx.Filter(c.Query("q"), c.Query("category"))
	if entries == nil {
		entries = []faq.Entry{}
	}
	ok(c, http.StatusOK, FAQListResponse{FAQs: entries, Count: len(entries)})
}

// FAQCategories lists the distinct categories.
func (h *Handlers) FAQCategories(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"categories": h.faqIdx.Categories()})
}

// FAQAnswer returns the highest-scoring entry for a free-text question, or
// 404 when nothing clears the similarity threshold.
func (h *Handlers) FAQAnswer(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}

	entry, score, found := faq.Best(h.faqIdx, q, h.faqThreshold)
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no matching answer")
		return
	}
	ok(c, http.StatusOK, FAQAnswerResponse{
		Question: entry.Question,
		Answer:   entry.Answer,
		Category: entry.Category,
		Score:    score,
	})
}
