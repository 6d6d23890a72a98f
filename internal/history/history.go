// Package history persists scan records to the external scanHistory document
// store. It exposes a narrow Store contract with two interchangeable
// implementations: a Firestore-backed store for production and an in-memory
// store for tests and local development without cloud credentials.
//
// Error semantics:
//   - SaveScan validates its input before any store contact: an empty image
//     payload returns ErrEmptyImage and a missing user key returns
//     ErrMissingUser.
//   - DeleteScan is idempotent from the caller's perspective; deleting an
//     absent record is not an error.
//
// Stored documents use the wire field names the web client has always
// written ({userId, imageUrl, detectedDisease, recommendation, timestamp,
// clientTimestamp}) so existing records stay readable.
package history

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

var (
	// ErrEmptyImage is returned when a scan is saved without image data.
	ErrEmptyImage = errors.New("scan image data is empty")

	// ErrMissingUser is returned when a scan is saved without a user key.
	ErrMissingUser = errors.New("scan has no user identity")
)

// Store is the persistence contract for scan history.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type Store interface {
	// SaveScan writes a new record and returns its store-assigned id.
	SaveScan(ctx context.Context, rec domain.ScanRecord) (string, error)

	// ListScans returns all records for userID, newest first.
	ListScans(ctx context.Context, userID string) ([]domain.ScanRecord, error)

	// DeleteScan removes a record by id. Absent records are not an error.
	DeleteScan(ctx context.Context, id string) error
}

// validateScan applies the shared write preconditions. It must run before
// any store round trip.
func validateScan(rec domain.ScanRecord) error {
	if strings.TrimSpace(rec.ImageData) == "" {
		return ErrEmptyImage
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return ErrMissingUser
	}
	return nil
}

// NormalizeTimestamp converts the three timestamp shapes observed in stored
// documents into a single time.Time: a store-native timestamp, a raw epoch
// number (seconds, or milliseconds for values past ~2001 in ms), or a string
// holding either RFC 3339 or an epoch. Anything unusable yields the fallback.
func NormalizeTimestamp(v any, fallback time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case int64:
		return epochToTime(t)
	case int:
		return epochToTime(int64(t))
	case float64:
		return epochToTime(int64(t))
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return epochToTime(n)
		}
	}
	return fallback
}

// epochToTime interprets large epochs as milliseconds, small ones as seconds.
func epochToTime(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// sortNewestFirst orders records by CreatedAt descending in place. Ties keep
// their relative order so repeated listings are stable.
func sortNewestFirst(recs []domain.ScanRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
