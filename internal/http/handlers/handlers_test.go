package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dermacare/go-derma-backend/internal/chat"
	"github.com/dermacare/go-derma-backend/internal/clinics"
	"github.com/dermacare/go-derma-backend/internal/domain"
	"github.com/dermacare/go-derma-backend/internal/faq"
	"github.com/dermacare/go-derma-backend/internal/history"
	"github.com/dermacare/go-derma-backend/internal/http/middleware"
	"github.com/dermacare/go-derma-backend/internal/upstream"
)

// ---------- fakes ----------

type fakeAccounts struct {
	signupErr error
	loginErr  error
	loggedOut []string
}

func (f *fakeAccounts) Signup(_ context.Context, email, _, name string) (*domain.User, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &domain.User{ID: "uid-1", Email: strings.ToLower(email), Name: name}, nil
}

func (f *fakeAccounts) Login(_ context.Context, email, _ string) (*domain.AuthSession, *domain.User, error) {
	if f.loginErr != nil {
		return nil, nil, f.loginErr
	}
	return &domain.AuthSession{Token: "tok-1", UserID: "uid-1"},
		&domain.User{ID: "uid-1", Email: email, Name: "Jane"}, nil
}

func (f *fakeAccounts) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

type fakePrefs struct {
	values map[string]string
}

func (f *fakePrefs) Save(_ context.Context, _, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func (f *fakePrefs) List(_ context.Context, _ string) (map[string]string, error) {
	return f.values, nil
}

func (f *fakePrefs) Reset(_ context.Context, _ string) error {
	f.values = nil
	return nil
}

type fakeFinder struct {
	clinics []domain.Clinic
	err     error
	gotLoc  *clinics.Location
}

func (f *fakeFinder) Search(_ context.Context, loc *clinics.Location) ([]domain.Clinic, error) {
	f.gotLoc = loc
	if loc == nil {
		return nil, clinics.ErrLocationUnavailable
	}
	return f.clinics, f.err
}

type fakeDetector struct {
	result *upstream.DetectionResult
	err    error
	calls  int
}

func (f *fakeDetector) Detect(_ context.Context, _ string, _ []byte) (*upstream.DetectionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeReplays struct {
	stored map[string]string // key -> result JSON
}

func (f *fakeReplays) Lookup(_ context.Context, _, key string, _ time.Time) (string, bool) {
	raw, found := f.stored[key]
	return raw, found
}

func (f *fakeReplays) Record(_ context.Context, _, key, resultJSON string, _ int) {
	if f.stored == nil {
		f.stored = map[string]string{}
	}
	f.stored[key] = resultJSON
}

// streamFunc adapts a function to the chat.Streamer interface.
type streamFunc func(ctx context.Context, input string, onChunk func(string) error) error

func (f streamFunc) Stream(ctx context.Context, input string, onChunk func(string) error) error {
	return f(ctx, input, onChunk)
}

// chunkedStreamer delivers the given chunks in order.
func chunkedStreamer(chunks ...string) streamFunc {
	return func(_ context.Context, _ string, onChunk func(string) error) error {
		for _, ch := range chunks {
			if err := onChunk(ch); err != nil {
				return err
			}
		}
		return nil
	}
}

// ---------- wiring ----------

type testEnv struct {
	accounts *fakeAccounts
	prefs    *fakePrefs
	finder   *fakeFinder
	detector *fakeDetector
	replays  *fakeReplays
	store    *history.MemoryStore
	router   *gin.Engine
}

// newTestEnv builds a router with the identity middleware and all routes
// mounted, backed entirely by fakes.
func newTestEnv(streamer chat.Streamer) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		accounts: &fakeAccounts{},
		prefs:    &fakePrefs{},
		finder:   &fakeFinder{},
		detector: &fakeDetector{result: &upstream.DetectionResult{PredictedCondition: "acne_vulgaris"}},
		replays:  &fakeReplays{},
		store:    history.NewMemoryStore(),
	}
	if streamer == nil {
		streamer = chunkedStreamer("Hello")
	}
	sessions := chat.NewManager(streamer, time.Minute)

	idx := faq.NewIndexFromEntries([]faq.Entry{
		{ID: 1, Question: "How do I reset my password?", Answer: "Use the reset link.", Category: "Privacy & Security"},
		{ID: 2, Question: "What is DermaCare AI?", Answer: "An educational skin analysis tool.", Category: "General"},
	})

	h := New(env.accounts, env.prefs, sessions, env.finder, env.store, idx, 0.1, env.detector, env.replays)

	r := gin.New()
	r.Use(middleware.SessionContext())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			_, found := env.replays.Lookup(ctx, userID, key, now)
			return found, nil
		},
	))
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/disease-detection", h.Analyze)
	r.POST("/ai-response", h.SendMessage)
	api := r.Group("/api")
	{
		api.GET("/chat", h.Transcript)
		api.POST("/chat/voice/start", h.StartVoice)
		api.POST("/chat/voice/stop", h.StopVoice)
		api.PUT("/chat/voice", h.VoicePartial)
		api.POST("/chat/voice/submit", h.SubmitVoiceInput)
		api.GET("/analysis", h.AnalysisResult)
		api.GET("/clinics", h.Clinics)
		api.GET("/scans", h.ListScans)
		api.POST("/scans", h.SaveScan)
		api.PUT("/scans/:id/expand", h.ExpandScan)
		api.DELETE("/scans/:id", h.DeleteScan)
		api.GET("/faq", h.FAQ)
		api.GET("/faq/categories", h.FAQCategories)
		api.GET("/faq/answer", h.FAQAnswer)
		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.PutPreference)
		api.DELETE("/preferences", h.ResetPreferences)
	}
	env.router = r
	return env
}

// do runs a request as user "u1" unless headers override the identity.
func (e *testEnv) do(method, path string, body *strings.Reader, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.HeaderAuthToken, "u1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

var errUpstreamDown = errors.New("upstream down")
