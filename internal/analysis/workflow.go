// Package analysis manages the image analysis workflow: holding the selected
// image, submitting it to the disease-detection endpoint, shaping the result,
// and persisting a scan record as a side effect.
//
// Failures never leave the workflow half-set: an analyze error clears any
// result and surfaces a fixed message in the chat transcript, matching how
// the dashboard has always reported it.
package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dermacare/go-derma-backend/internal/domain"
	"github.com/dermacare/go-derma-backend/internal/history"
	"github.com/dermacare/go-derma-backend/internal/upstream"
)

const (
	// DefaultRecommendation is substituted whenever the detection endpoint
	// omits a recommendation. It is both displayed and persisted.
	DefaultRecommendation = "Consider consulting with a dermatologist for a professional diagnosis and treatment plan."

	// AnalysisFailedMessage is pushed into the chat transcript when an
	// analyze attempt fails.
	AnalysisFailedMessage = "I'm sorry, there was an error analyzing your image. Please try again."

	// persistTimeout bounds the asynchronous scan save.
	persistTimeout = 30 * time.Second
)

var (
	// ErrNoImage is returned when Analyze runs without a selected image.
	ErrNoImage = errors.New("no image selected")

	// ErrSuperseded is returned when a newer analyze replaced this one while
	// it was in flight; its result has been discarded.
	ErrSuperseded = errors.New("analysis superseded")
)

// Detector submits an image for classification. upstream.DetectionClient
// satisfies it.
type Detector interface {
	Detect(ctx context.Context, filename string, image []byte) (*upstream.DetectionResult, error)
}

// TranscriptNotifier receives the cross-component error message. The chat
// session satisfies it.
type TranscriptNotifier interface {
	PushAssistantNote(text string)
}

// selectedImage is the staged upload awaiting analysis.
type selectedImage struct {
	name        string
	contentType string
	data        []byte
}

// Workflow holds one dashboard visit's analysis state: the selected image and
// at most one current result, replaced wholesale by each new analysis.
type Workflow struct {
	mu sync.Mutex

	detector Detector
	store    history.Store
	notifier TranscriptNotifier

	selected   *selectedImage
	result     *domain.AnalysisResult
	generation uint64
}

// NewWorkflow wires a workflow to its collaborators. notifier may be nil when
// no transcript is attached (e.g. in tests of the pure paths).
func NewWorkflow(detector Detector, store history.Store, notifier TranscriptNotifier) *Workflow {
	return &Workflow{detector: detector, store: store, notifier: notifier}
}

// SelectImage stages a file for analysis. Files whose declared media type is
// not image/* are rejected silently: the previous selection stays and false
// is returned. Accepting a file replaces any prior selection and clears the
// prior result.
func (w *Workflow) SelectImage(name, contentType string, data []byte) bool {
	if !strings.HasPrefix(contentType, "image/") {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.selected = &selectedImage{name: name, contentType: contentType, data: data}
	w.result = nil
	return true
}

// Analyze submits the selected image. On success it stores the result (with
// the default recommendation substituted when the endpoint omits one) and
// kicks off persistence of a base64 data-URL copy keyed to userID. On failure
// it pushes AnalysisFailedMessage to the transcript and leaves no result.
//
// A later Analyze supersedes one still in flight; the superseded call's
// completion is discarded and reported as ErrSuperseded.
func (w *Workflow) Analyze(ctx context.Context, userID string) (*domain.AnalysisResult, error) {
	w.mu.Lock()
	sel := w.selected
	if sel == nil {
		w.mu.Unlock()
		return nil, ErrNoImage
	}
	w.generation++
	gen := w.generation
	w.mu.Unlock()

	res, err := w.detector.Detect(ctx, sel.name, sel.data)

	w.mu.Lock()
	if w.generation != gen {
		w.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		w.result = nil
		w.mu.Unlock()
		if w.notifier != nil {
			w.notifier.PushAssistantNote(AnalysisFailedMessage)
		}
		return nil, err
	}

	out := &domain.AnalysisResult{
		PredictedCondition: res.PredictedCondition,
		Recommendation:     res.Recommendation,
	}
	if out.Recommendation == "" {
		out.Recommendation = RecommendationFor(res.PredictedCondition)
	}
	w.result = out
	w.mu.Unlock()

	go w.persistScan(userID, sel, out)

	return out, nil
}

// Result returns the current analysis result, or nil when none is set.
func (w *Workflow) Result() *domain.AnalysisResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// persistScan saves a scan record carrying a data-URL copy of the analyzed
// image. History failures are logged, not surfaced: the on-screen result is
// already correct and the user can re-run the scan later.
func (w *Workflow) persistScan(userID string, sel *selectedImage, res *domain.AnalysisResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	rec := domain.ScanRecord{
		UserID:          userID,
		ImageData:       dataURL(sel.contentType, sel.data),
		DetectedDisease: res.PredictedCondition,
		Recommendation:  res.Recommendation,
	}
	id, err := w.store.SaveScan(ctx, rec)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to save scan to history")
		return
	}
	log.Debug().Str("scan_id", id).Str("user_id", userID).Msg("scan saved to history")
}

// dataURL encodes image bytes the same way the browser's FileReader does.
func dataURL(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// titleCaser capitalizes the first letter of each word and leaves the rest
// of the word untouched.
var titleCaser = cases.Title(language.English, cases.NoLower)

// FormatConditionLabel turns a raw condition label into its display form:
// underscores become spaces and each word is capitalized. Display only; the
// persisted record keeps the raw value.
func FormatConditionLabel(label string) string {
	return titleCaser.String(strings.ReplaceAll(label, "_", " "))
}
