package httpapi

import (
	"context"
	"net/http"
)

// Start builds the route table and begins serving on the configured
// bind address. It blocks until the server stops; a clean shutdown
// returns http.ErrServerClosed.
func (g *Gateway) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mcp", g.handleMCP)
	mux.HandleFunc("GET /mcp", g.handleMCPStream)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("POST /mcp/{backend}", g.handleDirectPassthrough)

	chain := g.panicRecovery(g.rateLimit(g.loggingMiddleware(g.security(mux))))

	g.server = &http.Server{
		Addr:         g.cfg.Server.BindAddr,
		Handler:      chain,
		ReadTimeout:  g.cfg.Server.ReadTimeout,
		WriteTimeout: g.cfg.Server.WriteTimeout,
	}

	return g.server.ListenAndServe()
}

// Shutdown stops accepting new connections, then drains inflight
// requests, bounded by ctx's deadline.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.draining = true
	g.mu.Unlock()

	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
