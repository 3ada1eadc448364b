package server

import "net/http"

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(svcs Services) http.Handler {
	return newMux(svcs)
}

func newMux(svcs Services) http.Handler {
	h := &handler{svcs: svcs}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/markets", h.listMarkets)
	mux.HandleFunc("GET /api/v1/symbols/{market}/{ticker}/validate", h.validateSymbol)
	mux.HandleFunc("GET /api/v1/symbols/{market}/{ticker}/name", h.resolveName)
	mux.HandleFunc("GET /api/v1/quotes/{market}/{ticker}", h.getQuote)
	mux.HandleFunc("GET /api/v1/history/{market}/{ticker}", h.getHistory)
	mux.HandleFunc("GET /api/v1/fx/{base}/{quote}", h.getFxRate)
	mux.HandleFunc("GET /api/v1/portfolios/{id}/performance", h.getPerformance)

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
