// Package server hosts the notifier HTTP surface: game document update
// triggers, push subscription registration, and the VAPID public key lookup.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/clubblackout/reborn/internal/platform/timeouts"
	"github.com/clubblackout/reborn/internal/services/notifier/dispatch"
	"github.com/clubblackout/reborn/internal/services/notifier/storage"
)

// Config defines the inputs for the notifier transport boundary.
type Config struct {
	HTTPAddr string
	// APISecret signs the bearer tokens the game backend presents on
	// mutating endpoints. Empty disables auth (development only).
	APISecret string
	// VAPID identifies this server to browser push services. Missing keys
	// turn every dispatch into a logged no-op rather than an error.
	VAPID         dispatch.VAPIDKeys
	Games         storage.GameStore
	Subscriptions storage.SubscriptionStore
	// Sender overrides the Web Push transport. Nil selects the real one.
	Sender            dispatch.Sender
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the notifier HTTP process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// NewServer builds a configured notifier server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.Games == nil {
		return nil, errors.New("game store is required")
	}
	if config.Subscriptions == nil {
		return nil, errors.New("subscription store is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	sender := config.Sender
	if sender == nil {
		sender = dispatch.NewWebPushSender(config.VAPID)
	}
	dispatcher := dispatch.NewDispatcher(config.VAPID, destinationStore{subscriptions: config.Subscriptions}, sender)

	if !config.VAPID.Configured() {
		log.Printf("notifier: VAPID keys not configured, push delivery disabled")
	}

	h := newHandlers(config.Games, config.Subscriptions, dispatcher, config.VAPID.PublicKey)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           newHandler(h, newAuthenticator(config.APISecret)),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// Run creates and serves a notifier server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init notifier server: %w", err)
	}
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve notifier: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("notifier server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("notifier server listening on %s", s.httpAddr)
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

func newHandler(h handlers, auth *authenticator) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc(http.MethodGet+" /v1/vapid-public-key", h.handlePublicKey)
	mux.HandleFunc(http.MethodPut+" /v1/games/{joinCode}", auth.require(h.handleGameUpdate))
	mux.HandleFunc(http.MethodPut+" /v1/games/{joinCode}/players/{playerID}/private-state", auth.require(h.handlePrivateStateUpdate))
	mux.HandleFunc(http.MethodPut+" /v1/games/{joinCode}/players/{playerID}/subscription", auth.require(h.handlePutSubscription))
	mux.HandleFunc(http.MethodDelete+" /v1/games/{joinCode}/players/{playerID}/subscription", auth.require(h.handleDeleteSubscription))
	return mux
}
