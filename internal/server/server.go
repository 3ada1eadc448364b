package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/DominikIlski/Finansista/internal/fx"
	"github.com/DominikIlski/Finansista/internal/history"
	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/performance"
	"github.com/DominikIlski/Finansista/internal/quote"
	"github.com/DominikIlski/Finansista/internal/symbol"
)

// Services groups the core services the transport exposes.
type Services struct {
	Quotes      *quote.Service
	Histories   *history.Service
	Fx          *fx.Service
	Symbols     *symbol.Service
	Performance *performance.Service
	Markets     *market.Registry
}

type Server struct {
	srv *http.Server
}

// New creates a server. The baseCtx is used as the base context for all
// incoming requests (via BaseContext). Cancelling it causes in-flight
// provider fetches to stop promptly during graceful shutdown.
func New(baseCtx context.Context, port string, svcs Services) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: newMux(svcs),
			BaseContext: func(_ net.Listener) context.Context {
				return baseCtx
			},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down server")
	return s.srv.Shutdown(ctx)
}
