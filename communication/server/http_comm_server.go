package server

import (
	"bubbles/communication"
	"bubbles/engine"
	"bubbles/gamemaster"
	"bubbles/player"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server exposes a Controller over JSON/HTTP and streams its status over a
// websocket.
type Server struct {
	controller communication.Controller
	hub        *Hub
	router     chi.Router
}

func NewServer(controller communication.Controller) *Server {
	s := &Server{
		controller: controller,
		hub:        NewHub(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/status", s.handleStatus)
		r.Post("/setup", s.handleSetup)
		r.Post("/start", s.handleStart)
		r.Post("/tap", s.handleTap)
		r.Post("/finish", s.handleFinish)
	})
	r.Get("/ws", s.handleWS)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish queues status for every websocket client. It never blocks, so it is
// safe to use as a game observer.
func (s *Server) Publish(status engine.Status) {
	s.hub.Broadcast(communication.NewStatusDTO(status))
}

// Run serves the hub until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx.Done())
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info().Msgf("listening on %s", addr)

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	case err, ok := <-errCh:
		if ok {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		return server.Close()
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, communication.NewStatusDTO(s.controller.Status()))
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.controller.Setup(r.Context()))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload communication.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	s.respond(w, s.controller.Start(r.Context(), [2]player.Kind{payload.Player1, payload.Player2}))
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	var payload communication.TapRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	cell, err := uuid.Parse(payload.Cell)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cell")
		return
	}
	s.respond(w, s.controller.Tap(r.Context(), cell))
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.controller.Finish(r.Context()))
}

// respond answers with the current status, or maps err to a status code.
func (s *Server) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, communication.NewStatusDTO(s.controller.Status()))
	case errors.Is(err, gamemaster.ErrInvalidTransition), errors.Is(err, gamemaster.ErrNotAwaitingInput):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, player.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gamemaster.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("command failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := newClient()
	s.hub.Register(client)
	client.sendJSON(communication.Message{
		Type:    communication.StatusMessage,
		Payload: mustMarshal(communication.NewStatusDTO(s.controller.Status())),
	})

	go func() {
		defer conn.Close()
		if err := writeWithHeartbeat(conn, client.send); err != nil {
			log.Debug().Err(err).Msg("websocket write failed")
		}
	}()

	// Clients only ever ask for a fresh status; reading also detects closes.
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.Unregister(client)
			return
		}
		var msg communication.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "request_status" {
			client.sendJSON(communication.Message{
				Type:    communication.StatusMessage,
				Payload: mustMarshal(communication.NewStatusDTO(s.controller.Status())),
			})
		}
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, communication.ErrorResponse{Error: message})
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
