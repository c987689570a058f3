// Package httpapi is the gateway's HTTP ingress: JSON-RPC 2.0 over
// POST /mcp, an SSE upgrade on GET /mcp, a public health snapshot on
// GET /health, and a direct per-backend passthrough on
// POST /mcp/{backend}.
//
// DESIGN: Renamed from the teacher's internal/gateway package (an LLM
// prompt-compression proxy) and retargeted to MCP meta-tool dispatch,
// keeping its middleware chain shape (panicRecovery -> rateLimit ->
// logging -> security/CORS) and header/session-id conventions.
package httpapi

import (
	"net/http"
	"sync"

	"github.com/compresr/mcp-gateway/internal/config"
	"github.com/compresr/mcp-gateway/internal/meta"
	"github.com/compresr/mcp-gateway/internal/monitoring"
	"github.com/compresr/mcp-gateway/internal/playbook"
	"github.com/compresr/mcp-gateway/internal/registry"
	"github.com/compresr/mcp-gateway/internal/session"
)

// HeaderRequestID is echoed on every response, generated when absent.
const HeaderRequestID = "X-Request-ID"

// HeaderSessionID binds a client to its session tracker state across
// requests, generated on first contact.
const HeaderSessionID = "Mcp-Session-Id"

// MaxRateLimitBuckets bounds the per-IP rate limiter's memory under a
// burst of distinct source addresses.
const MaxRateLimitBuckets = 10000

// allowedHosts is not read by any handler. The direct
// POST /mcp/{backend} passthrough reaches only backends registered in
// the registry, looked up by name through Invoke; arbitrary hosts are
// never dialed by name.
var allowedHosts = map[string]bool{}

// Gateway is the HTTP server wrapping the meta dispatcher.
type Gateway struct {
	cfg    *config.Config
	server *http.Server

	dispatcher *meta.Dispatcher
	registry   *registry.Registry
	playbooks  *playbook.Store
	tracker    *session.Tracker
	stats      *meta.StatsCollector

	metrics       *monitoring.MetricsCollector
	alerts        *monitoring.AlertManager
	requestLogger *monitoring.RequestLogger

	rateLimiter *rateLimiter

	mu       sync.Mutex
	draining bool
}

// New constructs a Gateway around its already-wired collaborators.
func New(cfg *config.Config, dispatcher *meta.Dispatcher, reg *registry.Registry, playbooks *playbook.Store, tracker *session.Tracker, stats *meta.StatsCollector, metrics *monitoring.MetricsCollector, alerts *monitoring.AlertManager, requestLogger *monitoring.RequestLogger) *Gateway {
	return &Gateway{
		cfg:           cfg,
		dispatcher:    dispatcher,
		registry:      reg,
		playbooks:     playbooks,
		tracker:       tracker,
		stats:         stats,
		metrics:       metrics,
		alerts:        alerts,
		requestLogger: requestLogger,
		rateLimiter:   newRateLimiter(100),
	}
}
