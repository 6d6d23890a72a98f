// Firestore-backed scan history store.
package history

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// FirestoreStore persists scan records in a Firestore collection. Document
// ids are assigned by the store on write.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore connects to Firestore for the given project. The
// collection name is configurable to allow prefixed collections in shared
// projects; the production default is "scanHistory".
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client for %q: %w", projectID, err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// SaveScan writes a new document carrying both the server-assigned timestamp
// and a client-side fallback, and returns the generated document id.
func (s *FirestoreStore) SaveScan(ctx context.Context, rec domain.ScanRecord) (string, error) {
	if err := validateScan(rec); err != nil {
		return "", err
	}
	disease := rec.DetectedDisease
	if disease == "" {
		disease = "unknown"
	}
	ref, _, err := s.client.Collection(s.collection).Add(ctx, map[string]any{
		"userId":          rec.UserID,
		"imageUrl":        rec.ImageData,
		"detectedDisease": disease,
		"recommendation":  rec.Recommendation,
		"timestamp":       firestore.ServerTimestamp,
		"clientTimestamp": time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("save scan: %w", err)
	}
	return ref.ID, nil
}

// ListScans fetches every document matching userID and returns them newest
// first. Each document's timestamp is normalized from whichever of the three
// historical representations it carries; the client fallback timestamp is
// used when the server-assigned one is unavailable.
func (s *FirestoreStore) ListScans(ctx context.Context, userID string) ([]domain.ScanRecord, error) {
	it := s.client.Collection(s.collection).Where("userId", "==", userID).Documents(ctx)
	defer it.Stop()

	var out []domain.ScanRecord
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list scans for %q: %w", userID, err)
		}
		out = append(out, recordFromDoc(doc.Ref.ID, doc.Data()))
	}
	sortNewestFirst(out)
	return out, nil
}

// DeleteScan removes one document. A missing document is treated as already
// deleted.
func (s *FirestoreStore) DeleteScan(ctx context.Context, id string) error {
	_, err := s.client.Collection(s.collection).Doc(id).Delete(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("delete scan %q: %w", id, err)
	}
	return nil
}

// recordFromDoc maps raw document data onto a ScanRecord, picking the best
// available timestamp: server timestamp, then client fallback, then now.
func recordFromDoc(id string, data map[string]any) domain.ScanRecord {
	fallback := NormalizeTimestamp(data["clientTimestamp"], time.Now().UTC())
	return domain.ScanRecord{
		ID:              id,
		UserID:          asString(data["userId"]),
		ImageData:       asString(data["imageUrl"]),
		DetectedDisease: asString(data["detectedDisease"]),
		Recommendation:  asString(data["recommendation"]),
		CreatedAt:       NormalizeTimestamp(data["timestamp"], fallback),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
