// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/dermacare/go-derma-backend/internal/chat"
	"github.com/dermacare/go-derma-backend/internal/clinics"
	"github.com/dermacare/go-derma-backend/internal/config"
	"github.com/dermacare/go-derma-backend/internal/faq"
	"github.com/dermacare/go-derma-backend/internal/history"
	"github.com/dermacare/go-derma-backend/internal/http/handlers"
	"github.com/dermacare/go-derma-backend/internal/http/middleware"
	"github.com/dermacare/go-derma-backend/internal/repo"
	"github.com/dermacare/go-derma-backend/internal/services"
	"github.com/dermacare/go-derma-backend/internal/upstream"
)

// sessionTTL bounds how long an idle chat session is kept in memory.
const sessionTTL = 30 * time.Minute

// replayStore adapts the idempotency repository to the narrow interface the
// analysis handler expects. It keeps handlers decoupled from gorm while
// reusing the existing repo functions.
type replayStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup returns the stored result JSON for (userID, key) when a non-expired
// record exists.
func (r replayStore) Lookup(ctx context.Context, userID, key string, now time.Time) (string, bool) {
	rec, err := repo.GetIdempotency(ctx, r.db, userID, key, now)
	if err != nil || rec == nil {
		return "", false
	}
	return rec.ResultJSON, true
}

// Record stores the result JSON for (userID, key). Failures are swallowed;
// replay support is best effort.
func (r replayStore) Record(ctx context.Context, userID, key, resultJSON string, status int) {
	_, _ = repo.CreateIdempotency(ctx, r.db, userID, key, resultJSON, status, r.ttl)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity
// resolution, idempotency and rate limiting, CORS and security headers,
// health and metrics endpoints, and then mounts the public API.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (sized for image uploads)
//  6. Metrics
//  7. SessionContext: resolve caller identity once
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS, security headers, gzip (streamed routes excluded)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, store history.Store, faqIdx faq.Index, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit, sized for image uploads
	maxBody := cfg.MaxImageBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	r.Use(limitBody(maxBody))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Resolve caller identity from the session headers; issued tokens are
	// mapped to their account so scans and preferences follow the account id
	// rather than the transient token value.
	accounts := services.NewAuthService(db)
	r.Use(middleware.SessionContext())
	r.Use(middleware.ResolveAccountTokens(accounts.UserForToken))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderUser, middleware.HeaderAuthToken, middleware.HeaderUserEmail,
		middleware.HeaderIdempotencyKey,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Compression. Streamed replies and metrics stay uncompressed so chunks
	// reach the client as they are flushed.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths(streamExclusions(cfg.APIBasePath))))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Upstream clients share one timeout-bounded HTTP client; the assistant
	// relay gets no client timeout so long streams are bounded by the
	// request context instead.
	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	detector := &upstream.DetectionClient{URL: cfg.Upstream.DetectionURL, HTTPClient: httpClient}
	assistant := &upstream.AssistantClient{URL: cfg.Upstream.AssistantURL, HTTPClient: &http.Client{}}
	places := &upstream.PlacesClient{URL: cfg.Upstream.PlacesURL, APIKey: cfg.Upstream.PlacesAPIKey, HTTPClient: httpClient}

	// Dependency injection: handlers ← services / stores / clients
	sessions := chat.NewManager(assistant, sessionTTL)
	finder := clinics.NewService(places, cfg.ClinicRadius)
	h := handlers.New(
		accounts,
		services.NewPreferenceService(db),
		sessions,
		finder,
		store,
		faqIdx,
		cfg.FAQThreshold,
		detector,
		replayStore{db: db, ttl: cfg.IdempotencyTTL},
	)

	// Top-level operations
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/disease-detection", h.Analyze)
	r.POST("/ai-response", h.SendMessage)

	// Session-scoped API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Chat
		api.GET("/chat", h.Transcript)
		api.POST("/chat/voice/start", h.StartVoice)
		api.POST("/chat/voice/stop", h.StopVoice)
		api.PUT("/chat/voice", h.VoicePartial)
		api.POST("/chat/voice/submit", h.SubmitVoiceInput)

		// Analysis
		api.GET("/analysis", h.AnalysisResult)

		// Clinics
		api.GET("/clinics", h.Clinics)

		// Scan history
		api.GET("/scans", h.ListScans)
		api.POST("/scans", h.SaveScan)
		api.PUT("/scans/:id/expand", h.ExpandScan)
		api.DELETE("/scans/:id", h.DeleteScan)

		// FAQ
		api.GET("/faq", h.FAQ)
		api.GET("/faq/categories", h.FAQCategories)
		api.GET("/faq/answer", h.FAQAnswer)

		// Preferences
		api.GET("/preferences", h.GetPreferences)
		api.PUT("/preferences", h.PutPreference)
		api.DELETE("/preferences", h.ResetPreferences)
	}
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap fail on body read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// streamExclusions lists the paths that must bypass gzip so flushed chunks
// reach the client immediately. The voice submit route lives under the
// configurable API base path.
func streamExclusions(basePath string) []string {
	if basePath == "/" {
		basePath = ""
	}
	return []string{"/ai-response", basePath + "/chat/voice/submit", "/metrics"}
}
