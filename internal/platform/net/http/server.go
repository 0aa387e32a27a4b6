package http

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"sync/atomic"
	"time"

	"sift/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

const shutdownGrace = 5 * time.Second

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	addr  string
	bound atomic.Pointer[string]
	mux   *chi.Mux
	srv   *stdhttp.Server
}

// NewServer creates a server for addr, e.g. "127.0.0.1:9090" or ":0"
// opts receive the *chi.Mux so callers can mount routes/mw
func NewServer(addr string, opts ...func(*chi.Mux)) *Server {
	m := chi.NewRouter()
	for _, o := range opts {
		o(m)
	}
	return &Server{
		addr: addr,
		mux:  m,
		srv: &stdhttp.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router returns a Router facade over the internal chi mux
func (s *Server) Router() Router {
	return AdaptChi(s.mux)
}

// Addr returns the bound address once listening, else the configured one
func (s *Server) Addr() string {
	if p := s.bound.Load(); p != nil {
		return *p
	}
	return s.addr
}

// Run listens and serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	bound := ln.Addr().String()
	s.bound.Store(&bound)
	log.Info().Str("addr", bound).Msg("http listening")

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		<-errCh
		return nil
	}
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
