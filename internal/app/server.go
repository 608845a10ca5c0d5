// Package app hosts the deliberation HTTP and websocket process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/grousion/grousion/internal/deliberation/service"
	"github.com/grousion/grousion/internal/deliberation/storage/sqlite"
	"github.com/grousion/grousion/internal/fanout"
)

// Config defines the inputs for the deliberation server.
type Config struct {
	HTTPAddr          string
	StoragePath       string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// JoinRequestsPerMinute caps session joins per client address. Zero
	// selects the default.
	JoinRequestsPerMinute int
}

const (
	defaultReadHeaderTimeout     = 5 * time.Second
	defaultShutdownTimeout       = 10 * time.Second
	defaultJoinRequestsPerMinute = 30
)

// Server hosts the deliberation HTTP/websocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
}

// NewServer opens the store and wires the service, fanout hub, and routes.
func NewServer(config Config) (*Server, error) {
	store, err := sqlite.Open(config.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open deliberation store: %w", err)
	}

	hub := fanout.NewHub()
	svc := service.New(store, service.Options{Publisher: hub})

	readHeaderTimeout := config.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}
	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	joinLimit := config.JoinRequestsPerMinute
	if joinLimit <= 0 {
		joinLimit = defaultJoinRequestsPerMinute
	}

	handler := NewHandler(svc, hub, joinLimit)
	return &Server{
		httpAddr:        config.HTTPAddr,
		shutdownTimeout: shutdownTimeout,
		httpServer: &http.Server{
			Addr:              config.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		store: store,
	}, nil
}

// NewHandler builds the HTTP routes: health, websocket signals, and the
// JSON API.
func NewHandler(svc *service.Service, hub *fanout.Hub, joinRequestsPerMinute int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/ws", newWSHandler(hub))

	api := &apiHandler{
		svc:         svc,
		joinLimiter: newWindowLimiter(joinRequestsPerMinute, time.Minute),
	}
	api.register(mux)

	return withRequestSpan(mux)
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("grousion server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close deliberation store: %v", err)
		}
	}
}
