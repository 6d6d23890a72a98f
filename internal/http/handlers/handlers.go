// Handler wiring.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to application services, and translate results into HTTP responses. All
// business dependencies are injected through narrow interfaces so tests can
// substitute fakes without a database or live upstreams.
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/analysis"
	"github.com/dermacare/go-derma-backend/internal/chat"
	"github.com/dermacare/go-derma-backend/internal/clinics"
	"github.com/dermacare/go-derma-backend/internal/domain"
	"github.com/dermacare/go-derma-backend/internal/faq"
	"github.com/dermacare/go-derma-backend/internal/history"
	"github.com/dermacare/go-derma-backend/internal/http/middleware"
)

//
// Service contracts (context-aware)
//

// AccountService defines the account operations consumed by HTTP handlers.
// Implementations must be safe for concurrent use.
type AccountService interface {
	Signup(ctx context.Context, email, password, name string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.AuthSession, *domain.User, error)
	Logout(ctx context.Context, token string) error
}

// PreferenceService defines per-user key/value settings storage.
type PreferenceService interface {
	Save(ctx context.Context, userID, key, value string) error
	List(ctx context.Context, userID string) (map[string]string, error)
	Reset(ctx context.Context, userID string) error
}

// ClinicFinder locates nearby dermatology clinics.
type ClinicFinder interface {
	Search(ctx context.Context, loc *clinics.Location) ([]domain.Clinic, error)
}

// AnalysisReplayStore looks up and records completed analyses keyed by
// (userID, idempotency key). Implementations enforce the TTL window.
type AnalysisReplayStore interface {
	Lookup(ctx context.Context, userID, key string, now time.Time) (resultJSON string, found bool)
	Record(ctx context.Context, userID, key, resultJSON string, status int)
}

// Handlers groups all HTTP endpoints of the service.
type Handlers struct {
	accounts AccountService
	prefs    PreferenceService
	sessions *chat.Manager
	clinics  ClinicFinder
	store    history.Store
	faqIdx   faq.Index
	replays  AnalysisReplayStore

	detector analysis.Detector

	faqThreshold float64

	// One analysis workflow per user, created lazily. The workflow keeps
	// the user's current selection and latest result between requests.
	wfMu      sync.Mutex
	workflows map[string]*analysis.Workflow

	// Expanded scan per user. Deleting the expanded scan clears the marker
	// so the selection never points at a record that no longer exists.
	expMu    sync.Mutex
	expanded map[string]string
}

// New constructs a Handlers instance bound to the given dependencies.
// replays may be nil, which disables analysis replay support.
func New(
	accounts AccountService,
	prefs PreferenceService,
	sessions *chat.Manager,
	finder ClinicFinder,
	store history.Store,
	faqIdx faq.Index,
	faqThreshold float64,
	detector analysis.Detector,
	replays AnalysisReplayStore,
) *Handlers {
	return &Handlers{
		accounts:     accounts,
		prefs:        prefs,
		sessions:     sessions,
		clinics:      finder,
		store:        store,
		faqIdx:       faqIdx,
		faqThreshold: faqThreshold,
		detector:     detector,
		replays:      replays,
		workflows:    make(map[string]*analysis.Workflow),
		expanded:     make(map[string]string),
	}
}

// toggleExpanded flips the user's expanded-scan marker for id and returns the
// marker value afterwards ("" when collapsed).
func (h *Handlers) toggleExpanded(userID, id string) string {
	h.expMu.Lock()
	defer h.expMu.Unlock()
	if h.expanded[userID] == id {
		delete(h.expanded, userID)
		return ""
	}
	h.expanded[userID] = id
	return id
}

func (h *Handlers) expandedFor(userID string) string {
	h.expMu.Lock()
	defer h.expMu.Unlock()
	return h.expanded[userID]
}

// clearExpandedIf drops the marker only when it points at id.
func (h *Handlers) clearExpandedIf(userID, id string) {
	h.expMu.Lock()
	defer h.expMu.Unlock()
	if h.expanded[userID] == id {
		delete(h.expanded, userID)
	}
}

// workflowFor returns the per-user analysis workflow, creating it on first
// use. The chat session doubles as the transcript notifier so analysis
// failures surface in the conversation.
func (h *Handlers) workflowFor(userID string) *analysis.Workflow {
	h.wfMu.Lock()
	defer h.wfMu.Unlock()
	w, ok := h.workflows[userID]
	if !ok {
		w = analysis.NewWorkflow(h.detector, h.store, h.sessions.Get(userID))
		h.workflows[userID] = w
	}
	return w
}

// requireUser resolves the caller identity or writes a 401. The bool result
// reports whether the request may proceed.
func requireUser(c *gin.Context) (string, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthenticated, "no resolvable user identity")
		return "", false
	}
	return uid, true
}
