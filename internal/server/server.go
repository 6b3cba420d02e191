package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"weathercache/internal/models"
)

// Server exposes the dispatcher over REST and a WebSocket endpoint
type Server struct {
	dispatcher *Dispatcher
	router     chi.Router
	upgrader   websocket.Upgrader
	origins    map[string]bool
}

// NewServer creates the HTTP handler tree. An empty allowedOrigins (or one
// containing "*") accepts socket connections from any origin.
func NewServer(cache RangeCache, allowedOrigins []string) *Server {
	s := &Server{
		dispatcher: NewDispatcher(cache),
		router:     chi.NewRouter(),
		origins:    make(map[string]bool),
	}
	for _, o := range allowedOrigins {
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/ws", s.handleSocket)

	s.router.Route("/api/v1/day-summaries", func(r chi.Router) {
		r.Get("/", s.handleFetchRange)
		r.Delete("/", s.handleDeleteRange)
		r.Get("/cached", s.handleCachedRange)
		r.Get("/processed", s.handleProcessed)
		r.Get("/stats", s.handleStats)
	})

	return s
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer wraps the handler tree in an http.Server listening on addr
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().String(),
	})
}

func (s *Server) handleFetchRange(w http.ResponseWriter, r *http.Request) {
	req, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.dispatcher.FetchRange(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCachedRange(w http.ResponseWriter, r *http.Request) {
	req, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.dispatcher.ReadCachedRange(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteRange(w http.ResponseWriter, r *http.Request) {
	req, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	deleted, err := s.dispatcher.DeleteRange(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"deleted": deleted,
	})
}

func (s *Server) handleProcessed(w http.ResponseWriter, r *http.Request) {
	req, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := s.dispatcher.Processed(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rows),
		"data":  rows,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	req, err := parseRangeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := s.dispatcher.Stats(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(stats),
		"stats": stats,
	})
}

// handleSocket upgrades the connection and answers each frame with a reply
// frame. Frames are handled concurrently so a long fetch does not hold up a ping.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Client %s connected", r.RemoteAddr)
	ctx, cancel := context.WithCancel(context.Background())

	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
	)
	send := func(reply Reply) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("Failed to write %s to %s: %v", reply.Event, r.RemoteAddr, err)
		}
	}

	defer func() {
		cancel()
		wg.Wait()
		log.Printf("Client %s disconnected", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("WebSocket read error from %s: %v", r.RemoteAddr, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			send(Reply{Event: EventError, Data: Failure{Message: "invalid message: " + err.Error()}})
			continue
		}

		wg.Add(1)
		go func(msg Message) {
			defer wg.Done()
			send(s.dispatcher.Handle(ctx, msg))
		}(msg)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 || s.origins["*"] {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || s.origins[origin]
}

// parseRangeQuery reads latitude, longitude, startDate and endDate from the
// query string. Missing parameters are left nil for the validator to report.
func parseRangeQuery(r *http.Request) (RangeRequest, error) {
	q := r.URL.Query()
	var req RangeRequest

	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"latitude", &req.Latitude},
		{"longitude", &req.Longitude},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, &models.ValidationError{Field: p.name, Message: "must be a number"}
		}
		*p.dst = &v
	}

	for _, p := range []struct {
		name string
		dst  **int64
	}{
		{"startDate", &req.StartDate},
		{"endDate", &req.EndDate},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, &models.ValidationError{Field: p.name, Message: "must be epoch milliseconds"}
		}
		*p.dst = &v
	}

	return req, nil
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		validationErr *models.ValidationError
		configErr     *models.ConfigurationError
		remoteErr     *models.RemoteServiceError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, Failure{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
