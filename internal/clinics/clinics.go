// Package clinics implements the nearby-clinic lookup: a radius search around
// the caller's coordinates plus pure, order-preserving filtering and sorting
// of the returned list.
package clinics

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// ErrLocationUnavailable is returned when no usable coordinates were provided
// (the platform denied or lacks geolocation).
var ErrLocationUnavailable = errors.New("location unavailable")

// Searcher runs the upstream radius search. upstream.PlacesClient satisfies it.
type Searcher interface {
	Nearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]domain.Clinic, error)
}

// Location is a successfully acquired coordinate pair. A nil *Location means
// geolocation failed or was denied.
type Location struct {
	Lat float64
	Lng float64
}

// Service performs clinic searches with a fixed radius.
type Service struct {
	places Searcher
	radius int
}

// NewService wires the search service to its places client.
func NewService(places Searcher, radiusMeters int) *Service {
	return &Service{places: places, radius: radiusMeters}
}

// Search runs a radius search centered on loc and keeps only results whose
// name suggests a skin or dermatology practice. The previous result list is
// always replaced wholesale by the caller; nothing is cached here.
func (s *Service) Search(ctx context.Context, loc *Location) ([]domain.Clinic, error) {
	if loc == nil {
		return nil, ErrLocationUnavailable
	}
	results, err := s.places.Nearby(ctx, loc.Lat, loc.Lng, s.radius)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Clinic, 0, len(results))
	for _, c := range results {
		name := strings.ToLower(c.Name)
		if strings.Contains(name, "skin") || strings.Contains(name, "dermatology") {
			out = append(out, c)
		}
	}
	return out, nil
}

// Filters narrows a clinic list. Zero values disable the corresponding
// predicate, except MinRating which is an inclusive floor (0 keeps all).
type Filters struct {
	OpenNow   bool
	MinRating float64
	Query     string
}

// ApplyFilters returns the subset of list matching every predicate, in the
// original relative order. The input list is never mutated; the result is a
// derived view.
func ApplyFilters(list []domain.Clinic, f Filters) []domain.Clinic {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Clinic, 0, len(list))
	for _, c := range list {
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Vicinity), q) {
			continue
		}
		if f.OpenNow && (c.OpeningHours == nil || !c.OpeningHours.OpenNow) {
			continue
		}
		if c.Rating < f.MinRating {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortKey selects a display order.
type SortKey string

const (
	// SortByRating orders highest-rated first; unrated clinics sink to the end.
	SortByRating SortKey = "rating"
	// SortByName orders lexicographically by name, case-insensitive.
	SortByName SortKey = "name"
)

// SortBy returns a new slice in the requested order; the input list keeps its
// order. Unknown keys return a copy in the original order. Ties are stable.
func SortBy(list []domain.Clinic, key SortKey) []domain.Clinic {
	out := make([]domain.Clinic, len(list))
	copy(out, list)
	switch key {
	case SortByRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	case SortByName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}
	return out
}
