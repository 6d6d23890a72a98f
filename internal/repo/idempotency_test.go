package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
)

func newIdemDB(t *testing.T) (context.Context, *gorm.DB) {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "idem.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return context.Background(), db
}

func TestIdempotencyRoundTrip(t *testing.T) {
	ctx, db := newIdemDB(t)

	rec, err := CreateIdempotency(ctx, db, "u1", "k1", `{"condition":"acne_vulgaris"}`, 200, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.ExpiresAt.Before(rec.CreatedAt) {
		t.Fatalf("record fields unexpected: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ResultJSON != `{"condition":"acne_vulgaris"}` || got.Status != 200 {
		t.Fatalf("stored result unexpected: %+v", got)
	}
}

func TestIdempotencyScopedToUser(t *testing.T) {
	ctx, db := newIdemDB(t)

	if _, err := CreateIdempotency(ctx, db, "u1", "k1", "{}", 200, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u2", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for other user, got %v", err)
	}
	// Same key under a different user is a distinct record, not a duplicate.
	if _, err := CreateIdempotency(ctx, db, "u2", "k1", "{}", 200, time.Hour); err != nil {
		t.Fatalf("create for second user: %v", err)
	}
}

func TestIdempotencyDuplicateKey(t *testing.T) {
	ctx, db := newIdemDB(t)

	if _, err := CreateIdempotency(ctx, db, "u1", "k1", "{}", 200, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "k1", "{}", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	ctx, db := newIdemDB(t)

	if _, err := CreateIdempotency(ctx, db, "u1", "k1", "{}", 200, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	future := time.Now().UTC().Add(2 * time.Minute)
	if _, err := GetIdempotency(ctx, db, "u1", "k1", future); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after expiry, got %v", err)
	}
}
