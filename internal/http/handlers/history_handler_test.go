package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

func seedScan(t *testing.T, env *testEnv, userID, disease string) string {
	t.Helper()
	id, err := env.store.SaveScan(context.Background(), domain.ScanRecord{
		UserID:          userID,
		ImageData:       "data:image/jpeg;base64,xxxx",
		DetectedDisease: disease,
	})
	if err != nil {
		t.Fatalf("seed scan: %v", err)
	}
	return id
}

func TestListScansScopedToUser(t *testing.T) {
	env := newTestEnv(nil)
	seedScan(t, env, "u1", "eczema")
	seedScan(t, env, "u1", "psoriasis")
	seedScan(t, env, "other", "acne_vulgaris")

	w := env.do(http.MethodGet, "/api/scans", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListScansResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d", resp.Count)
	}
	for _, s := range resp.Scans {
		if s.UserID != "u1" {
			t.Fatalf("foreign scan leaked: %+v", s)
		}
	}
}

func TestListScansEmpty(t *testing.T) {
	env := newTestEnv(nil)
	w := env.do(http.MethodGet, "/api/scans", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListScansResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Scans == nil || resp.Count != 0 {
		t.Fatalf("expected empty list, got %+v", resp)
	}
}

func TestSaveScanEndpoint(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(http.MethodPost, "/api/scans", strings.NewReader(
		`{"image_data":"data:image/jpeg;base64,xxxx","detected_disease":"eczema","timestamp":"2026-08-30T10:00:00Z"}`), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp SaveScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("missing scan id")
	}

	scans, err := env.store.ListScans(context.Background(), "u1")
	if err != nil || len(scans) != 1 {
		t.Fatalf("stored scans = %v, %v", scans, err)
	}
	if scans[0].DetectedDisease != "eczema" {
		t.Fatalf("stored disease = %q", scans[0].DetectedDisease)
	}
}

func TestSaveScanRequiresImage(t *testing.T) {
	env := newTestEnv(nil)
	w := env.do(http.MethodPost, "/api/scans", strings.NewReader(`{"detected_disease":"eczema"}`), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDeleteScanRequiresConfirmation(t *testing.T) {
	env := newTestEnv(nil)
	id := seedScan(t, env, "u1", "eczema")

	w := env.do(http.MethodDelete, "/api/scans/"+id, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != ErrCodeConfirmRequired {
		t.Fatalf("code = %q", resp.Code)
	}

	// The scan must survive the rejected attempt.
	scans, _ := env.store.ListScans(context.Background(), "u1")
	if len(scans) != 1 {
		t.Fatalf("scan count = %d", len(scans))
	}
}

func TestDeleteScanConfirmed(t *testing.T) {
	env := newTestEnv(nil)
	id := seedScan(t, env, "u1", "eczema")

	w := env.do(http.MethodDelete, "/api/scans/"+id+"?confirm=true", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	scans, _ := env.store.ListScans(context.Background(), "u1")
	if len(scans) != 0 {
		t.Fatalf("scan count = %d", len(scans))
	}

	// Deleting again still succeeds.
	w = env.do(http.MethodDelete, "/api/scans/"+id+"?confirm=true", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("second delete status = %d", w.Code)
	}
}

func TestExpandScanToggle(t *testing.T) {
	env := newTestEnv(nil)
	id := seedScan(t, env, "u1", "eczema")

	w := env.do(http.MethodPut, "/api/scans/"+id+"/expand", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ExpandScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExpandedID != id {
		t.Fatalf("expanded = %q, want %q", resp.ExpandedID, id)
	}

	// The list reflects the marker.
	w = env.do(http.MethodGet, "/api/scans", nil, nil)
	var list ListScansResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.ExpandedID != id {
		t.Fatalf("list expanded = %q", list.ExpandedID)
	}

	// Expanding the same scan again collapses it.
	w = env.do(http.MethodPut, "/api/scans/"+id+"/expand", nil, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.ExpandedID != "" {
		t.Fatalf("expanded after toggle = %q", resp.ExpandedID)
	}
}

func TestDeleteExpandedScanClearsSelection(t *testing.T) {
	env := newTestEnv(nil)
	id := seedScan(t, env, "u1", "eczema")
	other := seedScan(t, env, "u1", "psoriasis")

	if w := env.do(http.MethodPut, "/api/scans/"+id+"/expand", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expand status = %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/scans/"+id+"?confirm=true", nil, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w := env.do(http.MethodGet, "/api/scans", nil, nil)
	var list ListScansResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.ExpandedID != "" {
		t.Fatalf("selection not cleared: %q", list.ExpandedID)
	}
	if list.Count != 1 || list.Scans[0].ID != other {
		t.Fatalf("remaining scans unexpected: %+v", list)
	}

	// Deleting a non-expanded scan leaves another user's or scan's marker alone.
	id2 := seedScan(t, env, "u1", "acne_vulgaris")
	_ = env.do(http.MethodPut, "/api/scans/"+other+"/expand", nil, nil)
	_ = env.do(http.MethodDelete, "/api/scans/"+id2+"?confirm=true", nil, nil)
	w = env.do(http.MethodGet, "/api/scans", nil, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.ExpandedID != other {
		t.Fatalf("marker lost on unrelated delete: %q", list.ExpandedID)
	}
}
