// Package server implements the JSON API consumed by the ReplyDesk
// dashboard, including the reply-dispatch relay endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lcastro/replydesk/internal/config"
	"github.com/lcastro/replydesk/internal/database"
	"github.com/lcastro/replydesk/internal/graph"
	"github.com/lcastro/replydesk/internal/logger"
)

// Server provides the HTTP API for the dashboard.
type Server struct {
	cfg        *config.Config
	store      database.Store
	dispatcher graph.Dispatcher
	validate   *validator.Validate
	log        *slog.Logger

	httpServer *http.Server
}

// NewServer creates a new API server with all required dependencies.
func NewServer(cfg *config.Config, store database.Store, dispatcher graph.Dispatcher, log *slog.Logger) *Server {
	validate := validator.New()

	// Report field names as their JSON keys so validation messages match the
	// wire format clients actually send.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		validate:   validate,
		log:        log.With("component", "api_server"),
	}
}

// Handler builds the full route table wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Reply dispatch relay
	mux.HandleFunc("/api/respond", s.handleRespond)

	// Inbox
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/messages/", s.handleMessageItem)

	// Automation rules
	mux.HandleFunc("/api/rules", s.handleRules)
	mux.HandleFunc("/api/rules/", s.handleRuleItem)

	// Activity log
	mux.HandleFunc("/api/activity", s.handleActivity)

	// Account credentials
	mux.HandleFunc("/api/credentials", s.handleCredentials)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return logger.Middleware(s.log)(mux)
}

// Start begins serving the API. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.log.Info("Starting HTTP server", "addr", s.cfg.Server.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode response", "error", err)
	}
}

// writeError emits the shared error envelope. The message text is passed
// through verbatim.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

// validationMessage flattens a validator error into a single client-facing
// message describing the first failed field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fe.Field() + " is invalid"
	}
}
