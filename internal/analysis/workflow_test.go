package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dermacare/go-derma-backend/internal/history"
	"github.com/dermacare/go-derma-backend/internal/upstream"
)

// ----- Fakes -----

type fakeDetector struct {
	res *upstream.DetectionResult
	err error

	gotName  string
	gotBytes []byte
}

func (f *fakeDetector) Detect(_ context.Context, name string, image []byte) (*upstream.DetectionResult, error) {
	f.gotName = name
	f.gotBytes = image
	return f.res, f.err
}

type fakeNotifier struct {
	notes []string
}

func (f *fakeNotifier) PushAssistantNote(text string) { f.notes = append(f.notes, text) }

// waitForScans polls the store until the asynchronous persistence lands.
func waitForScans(t *testing.T, store *history.MemoryStore, userID string, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recs, err := store.ListScans(context.Background(), userID)
		if err != nil {
			t.Fatalf("list scans: %v", err)
		}
		if len(recs) == want {
			out := make([]string, 0, want)
			for _, r := range recs {
				out = append(out, r.Recommendation)
			}
			return out
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d persisted scans", want)
	return nil
}

// ----- Tests -----

func TestSelectImage_RejectsNonImagesSilently(t *testing.T) {
	w := NewWorkflow(&fakeDetector{}, history.NewMemoryStore(), nil)

	if w.SelectImage("notes.txt", "text/plain", []byte("hi")) {
		t.Fatal("non-image must be rejected")
	}
	if !w.SelectImage("lesion.png", "image/png", []byte{1, 2}) {
		t.Fatal("image must be accepted")
	}
	// The rejected file must not have replaced the selection.
	if w.SelectImage("doc.pdf", "application/pdf", []byte("x")) {
		t.Fatal("pdf must be rejected")
	}
	if w.selected == nil || w.selected.name != "lesion.png" {
		t.Fatalf("selection = %+v", w.selected)
	}
}

func TestSelectImage_ClearsPriorResult(t *testing.T) {
	det := &fakeDetector{res: &upstream.DetectionResult{PredictedCondition: "melanoma", Recommendation: "r"}}
	store := history.NewMemoryStore()
	w := NewWorkflow(det, store, nil)

	w.SelectImage("a.png", "image/png", []byte{1})
	if _, err := w.Analyze(context.Background(), "u1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if w.Result() == nil {
		t.Fatal("expected a result")
	}

	w.SelectImage("b.png", "image/png", []byte{2})
	if w.Result() != nil {
		t.Fatal("new selection must clear the prior result")
	}
}

func TestAnalyze_WithoutSelection(t *testing.T) {
	w := NewWorkflow(&fakeDetector{}, history.NewMemoryStore(), nil)
	if _, err := w.Analyze(context.Background(), "u1"); !errors.Is(err, ErrNoImage) {
		t.Fatalf("want ErrNoImage, got %v", err)
	}
}

func TestAnalyze_DefaultRecommendationDisplayedAndPersisted(t *testing.T) {
	det := &fakeDetector{res: &upstream.DetectionResult{PredictedCondition: "acne_vulgaris"}}
	store := history.NewMemoryStore()
	w := NewWorkflow(det, store, nil)

	w.SelectImage("lesion.png", "image/png", []byte{0x89})
	res, err := w.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Recommendation != DefaultRecommendation {
		t.Fatalf("displayed recommendation = %q", res.Recommendation)
	}

	recs := waitForScans(t, store, "u1", 1)
	if recs[0] != DefaultRecommendation {
		t.Fatalf("persisted recommendation = %q", recs[0])
	}
}

func TestAnalyze_PersistsRawLabelAndDataURL(t *testing.T) {
	det := &fakeDetector{res: &upstream.DetectionResult{PredictedCondition: "early_stage_melanoma", Recommendation: "See a specialist."}}
	store := history.NewMemoryStore()
	w := NewWorkflow(det, store, nil)

	w.SelectImage("lesion.png", "image/png", []byte{1, 2, 3})
	if _, err := w.Analyze(context.Background(), "u1"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	waitForScans(t, store, "u1", 1)
	all, _ := store.ListScans(context.Background(), "u1")
	if all[0].DetectedDisease != "early_stage_melanoma" {
		t.Fatalf("persisted label must stay raw, got %q", all[0].DetectedDisease)
	}
	if !strings.HasPrefix(all[0].ImageData, "data:image/png;base64,") {
		t.Fatalf("image data = %q", all[0].ImageData)
	}
}

func TestAnalyze_FailureNotifiesTranscriptAndLeavesNoResult(t *testing.T) {
	det := &fakeDetector{err: errors.New("model server down")}
	notifier := &fakeNotifier{}
	w := NewWorkflow(det, history.NewMemoryStore(), notifier)

	w.SelectImage("lesion.png", "image/png", []byte{1})
	if _, err := w.Analyze(context.Background(), "u1"); err == nil {
		t.Fatal("expected an error")
	}
	if w.Result() != nil {
		t.Fatal("failure must leave no result")
	}
	if len(notifier.notes) != 1 || notifier.notes[0] != AnalysisFailedMessage {
		t.Fatalf("transcript notes = %v", notifier.notes)
	}
}

func TestFormatConditionLabel(t *testing.T) {
	cases := map[string]string{
		"early_stage_melanoma":        "Early Stage Melanoma",
		"acne_vulgaris":               "Acne Vulgaris",
		"melanoma":                    "Melanoma",
		"tinea_ringworm_candidiasis":  "Tinea Ringworm Candidiasis",
		"already Capitalized words":   "Already Capitalized Words",
		"":                            "",
	}
	for in, want := range cases {
		if got := FormatConditionLabel(in); got != want {
			t.Fatalf("FormatConditionLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyze_ConditionRecommendationApplied(t *testing.T) {
	det := &fakeDetector{res: &upstream.DetectionResult{PredictedCondition: "melanoma"}}
	store := history.NewMemoryStore()
	w := NewWorkflow(det, store, nil)

	w.SelectImage("lesion.png", "image/png", []byte{0x89})
	res, err := w.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Recommendation != RecommendationFor("melanoma") || res.Recommendation == DefaultRecommendation {
		t.Fatalf("recommendation = %q", res.Recommendation)
	}
}

func TestRecommendationFor(t *testing.T) {
	if got := RecommendationFor("tinea_ringworm_candidiasis"); got != "Use antifungal creams and keep the area dry." {
		t.Fatalf("mapped recommendation = %q", got)
	}
	if got := RecommendationFor("unheard_of"); got != DefaultRecommendation {
		t.Fatalf("fallback = %q", got)
	}
}
