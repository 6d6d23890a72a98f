// Package repo implements the local relational persistence layer, backed by
// GORM. This file provides repository functions for per-user preferences.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// UpsertPreference writes one preference entry, replacing any existing value
// for the same (user, key).
func UpsertPreference(ctx context.Context, db *gorm.DB, userID, key, value string) error {
	p := &domain.Preference{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(p).Error
}

// ListPreferences returns all preference entries for a user.
func ListPreferences(ctx context.Context, db *gorm.DB, userID string) ([]domain.Preference, error) {
	var out []domain.Preference
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("key asc").
		Find(&out).Error
	return out, err
}

// DeletePreferences removes every preference entry for a user. Used by the
// destructive "reset settings" action, which the HTTP layer gates behind an
// explicit confirmation.
func DeletePreferences(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Preference{}).Error
}
