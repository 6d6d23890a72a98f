// Package domain defines the core data types of the application. This file
// holds the GORM model backing analyze-request replay protection.
package domain

import "time"

// Idempotency records the outcome of a previously processed analyze request,
// keyed by (user_id, key). A repeated POST /disease-detection carrying the
// same Idempotency-Key returns the recorded result instead of re-running the
// upstream model call and re-persisting a scan.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_key,priority:1"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_key,priority:2"`
	ResultJSON string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
