package clinics

import (
	"context"
	"errors"
	"testing"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

type fakeSearcher struct {
	results []domain.Clinic
	err     error

	gotLat    float64
	gotLng    float64
	gotRadius int
}

func (f *fakeSearcher) Nearby(_ context.Context, lat, lng float64, radius int) ([]domain.Clinic, error) {
	f.gotLat, f.gotLng, f.gotRadius = lat, lng, radius
	return f.results, f.err
}

func clinic(name string, rating float64, openNow bool) domain.Clinic {
	return domain.Clinic{
		Name:         name,
		Vicinity:     "somewhere",
		Rating:       rating,
		OpeningHours: &domain.OpeningHours{OpenNow: openNow},
	}
}

func TestSearch_NilLocationFails(t *testing.T) {
	s := NewService(&fakeSearcher{}, 10000)
	if _, err := s.Search(context.Background(), nil); !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("want ErrLocationUnavailable, got %v", err)
	}
}

func TestSearch_UsesConfiguredRadiusAndFiltersNames(t *testing.T) {
	f := &fakeSearcher{results: []domain.Clinic{
		clinic("City Skin Clinic", 5, true),
		clinic("General Hospital", 4, true),
		clinic("Dermatology Center", 4.5, false),
	}}
	s := NewService(f, 10000)

	got, err := s.Search(context.Background(), &Location{Lat: 51.5, Lng: -0.12})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.gotRadius != 10000 {
		t.Fatalf("radius = %d", f.gotRadius)
	}
	if len(got) != 2 || got[0].Name != "City Skin Clinic" || got[1].Name != "Dermatology Center" {
		t.Fatalf("filtered results = %+v", got)
	}
}

func TestApplyFilters_MinRatingKeepsOriginalOrder(t *testing.T) {
	list := []domain.Clinic{
		clinic("a skin", 5, true),
		clinic("b skin", 3, true),
		clinic("c skin", 4.5, true),
		clinic("d skin", 2, true),
		clinic("e skin", 1, true),
	}
	got := ApplyFilters(list, Filters{MinRating: 4})
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[0].Rating != 5 || got[1].Rating != 4.5 {
		t.Fatalf("order not preserved: %+v", got)
	}
	// Derived view only: the source list is untouched.
	if len(list) != 5 || list[1].Rating != 3 {
		t.Fatal("input list was mutated")
	}
}

func TestApplyFilters_OpenNowAndQuery(t *testing.T) {
	list := []domain.Clinic{
		clinic("City Skin Clinic", 5, true),
		clinic("Night Dermatology", 5, false),
		{Name: "Unrated Skin", Vicinity: "High Street", Rating: 0, OpeningHours: nil},
	}

	got := ApplyFilters(list, Filters{OpenNow: true})
	if len(got) != 1 || got[0].Name != "City Skin Clinic" {
		t.Fatalf("openNow filter = %+v", got)
	}

	got = ApplyFilters(list, Filters{Query: "high street"})
	if len(got) != 1 || got[0].Name != "Unrated Skin" {
		t.Fatalf("query must match vicinity too: %+v", got)
	}
}

func TestSortBy_RatingDescendingAndNameLexicographic(t *testing.T) {
	list := []domain.Clinic{
		clinic("bravo", 3, true),
		clinic("Alpha", 5, true),
		clinic("charlie", 4, true),
	}

	byRating := SortBy(list, SortByRating)
	if byRating[0].Rating != 5 || byRating[1].Rating != 4 || byRating[2].Rating != 3 {
		t.Fatalf("rating order = %+v", byRating)
	}

	byName := SortBy(list, SortByName)
	if byName[0].Name != "Alpha" || byName[1].Name != "bravo" || byName[2].Name != "charlie" {
		t.Fatalf("name order = %+v", byName)
	}

	// A new derived array each time; the source stays put.
	if list[0].Name != "bravo" {
		t.Fatal("input list was reordered")
	}
}
