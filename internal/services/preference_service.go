package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/dermacare/go-derma-backend/internal/repo"
)

const (
	maxPreferenceKeyLen   = 64
	maxPreferenceValueLen = 1024
)

// PreferenceService stores small per-user key/value settings, such as the
// preferred clinic sort order or whether voice input is enabled.
type PreferenceService struct {
	DB *gorm.DB
}

// NewPreferenceService constructs a PreferenceService backed by db.
func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{DB: db}
}

// Save upserts a single preference for the user. Keys are lower-cased so
// lookups are case-insensitive.
func (s *PreferenceService) Save(ctx context.Context, userID, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" || len(key) > maxPreferenceKeyLen || len(value) > maxPreferenceValueLen {
		return ErrInvalidPreference
	}
	return repo.UpsertPreference(ctx, s.DB, userID, key, value)
}

// List returns all preferences for the user as a key/value map.
func (s *PreferenceService) List(ctx context.Context, userID string) (map[string]string, error) {
	prefs, err := repo.ListPreferences(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p.Key] = p.Value
	}
	return out, nil
}

// Reset removes every stored preference for the user.
func (s *PreferenceService) Reset(ctx context.Context, userID string) error {
	return repo.DeletePreferences(ctx, s.DB, userID)
}
