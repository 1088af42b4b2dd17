// Package httpapi implements the REST gateway to the mind.
//
// Security:
//   - API key authentication on every /v1 request (constant-time comparison)
//   - Request body size limits (default 1 MB)
//   - Per-caller rate limiting via token bucket
//   - All requests logged with correlation IDs
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jkaninda/okapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/ckaya/ali/internal/mind"
	"github.com/ckaya/ali/internal/observability"
	"github.com/ckaya/ali/internal/ratelimit"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP gateway.
type Config struct {
	ListenAddr     string            // e.g., ":8080"
	EnableDocs     bool              // Serve OpenAPI docs.
	APIKeys        map[string]string // API key → caller name. The creator is matched by name.
	MaxRequestSize int64             // Maximum request body in bytes. 0 = 1 MB default.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Gateway is the HTTP gateway. It exposes the mind over REST and mounts
// the WebSocket chat handler when one is attached.
type Gateway struct {
	config  Config
	mind    *mind.Mind
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	server  *http.Server

	// Extra handlers mounted on the HTTP mux (the WebSocket chat endpoint).
	extraRoutes []extraRoute

	okapi *okapi.Okapi
	group *okapi.Group
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates the HTTP gateway around a mind.
func NewGateway(cfg Config, m *mind.Mind, rl *ratelimit.Limiter, logger *slog.Logger) *Gateway {
	maxSize := cfg.MaxRequestSize
	if maxSize <= 0 {
		maxSize = defaultMaxRequestSize
	}
	return &Gateway{
		config:  cfg,
		mind:    m,
		limiter: rl,
		logger:  logger,
		okapi:   okapi.New(okapi.WithMaxMultipartMemory(maxSize)),
	}
}

// WithHandler mounts an additional handler on the HTTP mux at the given
// pattern. Used for the WebSocket chat endpoint.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

// WithOpenAPIDocs enables the OpenAPI documentation endpoint.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "Ali",
			Version: "v0.1.0",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	middlewares := []okapi.Middleware{}
	if g.config.Metrics != nil || g.config.Tracer != nil {
		middlewares = append(middlewares, observability.MetricsMiddleware(g.config.Metrics, g.config.Tracer))
	}
	middlewares = append(middlewares, g.authenticate)

	// Authenticated /v1 group.
	g.group = g.okapi.Group("/v1", middlewares...)

	g.group.Post("/talk", g.handleTalk,
		okapi.DocSummary("Speak to the mind and receive its reply"),
		okapi.DocTags("Dialogue"),
		okapi.DocRequestBody(TalkRequest{}),
		okapi.DocResponse(TalkResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.group.Get("/status", g.handleStatus,
		okapi.DocSummary("Current state of the mind"),
		okapi.DocTags("Introspection"),
		okapi.DocResponse(mind.Status{}),
	)
	g.group.Get("/thoughts/recent", g.handleRecentThoughts,
		okapi.DocSummary("Recent winning thoughts from the workspace"),
		okapi.DocTags("Introspection"),
		okapi.DocResponse([]ThoughtResponse{}),
	)
	g.group.Get("/identity", g.handleIdentity,
		okapi.DocSummary("The persistent identity: birth, phase, traits, values"),
		okapi.DocTags("Introspection"),
	)

	// Extra handlers (the WebSocket chat endpoint).
	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, er.handler.ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http gateway starting", slog.String("addr", g.config.ListenAddr))
	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// --- Handlers ---

// TalkRequest is the JSON body for POST /v1/talk.
type TalkRequest struct {
	Message string `json:"message"`
}

// TalkResponse is the JSON response for POST /v1/talk.
type TalkResponse struct {
	Reply            string  `json:"reply"`
	Emotion          string  `json:"emotion"`
	EmotionIntensity float64 `json:"emotion_intensity"`
	ConsciousThought string  `json:"conscious_thought,omitempty"`
	Salience         float64 `json:"salience,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Phi              int64   `json:"phi"`
	CorrelationID    string  `json:"correlation_id"`
}

func (g *Gateway) handleTalk(c *okapi.Context) error {
	caller := c.GetString("caller")

	if g.limiter != nil {
		if err := g.limiter.Allow(caller); err != nil {
			return c.AbortTooManyRequests("rate limit exceeded")
		}
	}

	var req TalkRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("message is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.AbortBadRequest("message is required")
	}

	correlationID := newCorrelationID()

	g.logger.Info("http talk",
		slog.String("caller", caller),
		slog.String("correlation_id", correlationID),
		slog.Bool("privileged", g.mind.IsCreator(caller)),
	)

	resp, err := g.mind.Process(c.Context(), &mind.Input{
		Content: req.Message,
		Speaker: caller,
	})
	if err != nil {
		g.logger.Error("processing failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("processing failed")
	}

	out := TalkResponse{
		Reply:            resp.Content,
		Emotion:          resp.Emotion,
		EmotionIntensity: resp.EmotionIntensity,
		Phi:              resp.Phi,
		CorrelationID:    correlationID,
	}
	if resp.ConsciousThought != nil {
		out.ConsciousThought = resp.ConsciousThought.Content
		out.Salience = resp.ConsciousThought.Salience
		out.Confidence = resp.ConsciousThought.Confidence
	}
	return c.OK(out)
}

func (g *Gateway) handleStatus(c *okapi.Context) error {
	return c.OK(g.mind.Status(c.Context()))
}

// ThoughtResponse is one winning thought in GET /v1/thoughts/recent.
type ThoughtResponse struct {
	Source     string    `json:"source"`
	Content    string    `json:"content"`
	Salience   float64   `json:"salience"`
	Confidence float64   `json:"confidence"`
	Emotion    string    `json:"emotion,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (g *Gateway) handleRecentThoughts(c *okapi.Context) error {
	limit := 20
	if raw := c.Request().URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.AbortBadRequest("limit must be a positive integer")
		}
		limit = n
	}

	thoughts := g.mind.RecentThoughts(limit)
	out := make([]ThoughtResponse, 0, len(thoughts))
	for _, t := range thoughts {
		out = append(out, ThoughtResponse{
			Source:     t.Source,
			Content:    t.Content,
			Salience:   t.Salience,
			Confidence: t.Confidence,
			Emotion:    t.Emotion,
			CreatedAt:  t.CreatedAt,
		})
	}
	return c.OK(out)
}

func (g *Gateway) handleIdentity(c *okapi.Context) error {
	return c.OK(g.mind.Snapshot())
}

// HealthResponse is the JSON response for the probe endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleLiveness is the liveness probe.
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// authenticate resolves the caller name from the Bearer API key.
func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")

		caller := ""
		for key, name := range g.config.APIKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
				caller = name
			}
		}
		if caller == "" {
			return c.AbortUnauthorized("invalid API key")
		}
		c.Set("caller", caller)
		return next(c)
	}
}

func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
