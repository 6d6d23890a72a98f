// Clinic HTTP handlers.
//
// This file exposes the nearby-clinic endpoint:
//   - GET /api/clinics  (search, filter and sort dermatology clinics)
//
// Query parameters:
//   - lat, lng:    caller coordinates (both required)
//   - open_now:    "true" keeps only clinics currently open
//   - min_rating:  minimum rating threshold
//   - q:           substring match on name or vicinity
//   - sort:        "rating" (default) or "name"
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/clinics"
	"github.com/dermacare/go-derma-backend/internal/domain"
	"github.com/dermacare/go-derma-backend/internal/utils"
)

// ClinicsResponse wraps the matched clinics.
type ClinicsResponse struct {
	Clinics []domain.Clinic `json:"clinics"`
	Count   int             `json:"count"`
}

// Clinics searches for dermatology clinics around the caller's coordinates,
// then applies the requested filters and sort order.
func (h *Handlers) Clinics(c *gin.Context) {
	ctx := c.Request.Context()

	var loc *clinics.Location
	lat, okLat := utils.ParseFloat(c.Query("lat"))
	lng, okLng := utils.ParseFloat(c.Query("lng"))
	if okLat && okLng {
		loc = &clinics.Location{Lat: lat, Lng: lng}
	}

	list, err := h.clinics.Search(ctx, loc)
	if err != nil {
		if errors.Is(err, clinics.ErrLocationUnavailable) {
			fail(c, http.StatusBadRequest, ErrCodeLocationUnavailable, "location unavailable")
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailure, "clinic search failed")
		return
	}

	list = clinics.ApplyFilters(list, clinics.Filters{
		OpenNow:   strings.EqualFold(c.Query("open_now"), "true"),
		MinRating: utils.FloatDefault(c.Query("min_rating"), 0),
		Query:     c.Query("q"),
	})

	sortKey := clinics.SortByRating
	if strings.EqualFold(c.Query("sort"), string(clinics.SortByName)) {
		sortKey = clinics.SortByName
	}
	list = clinics.SortBy(list, sortKey)

	ok(c, http.StatusOK, ClinicsResponse{Clinics: list, Count: len(list)})
}
