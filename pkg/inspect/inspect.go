package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fnr1r/wayland-go/pkg/server"
)

// Server is the inspection surface for one event loop.
type Server struct {
	loop   *server.EventLoop
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*clientInfo

	tap *tap

	metricsHandler http.Handler
}

// clientInfo is the hook-maintained record for one connection.
type clientInfo struct {
	TraceID     string    `json:"trace_id"`
	ConnectedAt time.Time `json:"connected_at"`
	Requests    uint64    `json:"requests"`
	LastError   string    `json:"last_error,omitempty"`
}

// Option configures the inspection server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the /metrics handler, for serving a
// non-default Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// New creates an inspection server for loop. Attach the result of
// Hooks to the loop and mount Router on an HTTP listener.
func New(loop *server.EventLoop, opts ...Option) *Server {
	s := &Server{
		loop:           loop,
		logger:         slog.Default().With("component", "inspect"),
		clients:        make(map[string]*clientInfo),
		metricsHandler: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tap = newTap(s.logger)
	return s
}

// Hooks returns the observer set that keeps the surface current. The
// hooks copy a few fields under a mutex and hand messages to the tap's
// broadcast goroutine; they do not block dispatch.
func (s *Server) Hooks() server.Hooks {
	return server.Hooks{
		ClientConnected: func(c *server.Client) {
			s.mu.Lock()
			s.clients[c.TraceID] = &clientInfo{
				TraceID:     c.TraceID,
				ConnectedAt: c.ConnectedAt(),
			}
			s.mu.Unlock()
			s.tap.publish(streamMessage{
				Type:   "client_connected",
				Client: c.TraceID,
				Time:   time.Now(),
			})
		},

		ClientClosed: func(c *server.Client, reason error) {
			s.mu.Lock()
			delete(s.clients, c.TraceID)
			s.mu.Unlock()
			msg := streamMessage{
				Type:   "client_closed",
				Client: c.TraceID,
				Time:   time.Now(),
			}
			if reason != nil {
				msg.Text = reason.Error()
			}
			s.tap.publish(msg)
		},

		MessageDispatched: func(c *server.Client, iface, message string, opcode uint16, took time.Duration) {
			s.mu.Lock()
			if info, ok := s.clients[c.TraceID]; ok {
				info.Requests++
			}
			s.mu.Unlock()
			s.tap.publish(streamMessage{
				Type:      "request",
				Client:    c.TraceID,
				Interface: iface,
				Message:   message,
				Opcode:    opcode,
				TookUs:    took.Microseconds(),
				Time:      time.Now(),
			})
		},

		ProtocolError: func(c *server.Client, object uint32, code uint32, msg string) {
			s.mu.Lock()
			if info, ok := s.clients[c.TraceID]; ok {
				info.LastError = msg
			}
			s.mu.Unlock()
			s.tap.publish(streamMessage{
				Type:   "protocol_error",
				Client: c.TraceID,
				Object: object,
				Code:   code,
				Text:   msg,
				Time:   time.Now(),
			})
		},
	}
}

// Router returns the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/clients", s.handleClients)
	r.Get("/globals", s.handleGlobals)
	r.Get("/stats", s.handleStats)
	r.Get("/stream", s.tap.handleWebSocket)
	r.Handle("/metrics", s.metricsHandler)
	return r
}

// Close drops all tap subscribers.
func (s *Server) Close() {
	s.tap.close()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

func (s *Server) handleClients(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]clientInfo, 0, len(s.clients))
	for _, info := range s.clients {
		out = append(out, *info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	writeJSON(w, s.logger, out)
}

// globalInfo is the JSON shape of one advertised global.
type globalInfo struct {
	Name      uint32 `json:"name"`
	Interface string `json:"interface"`
	Version   int32  `json:"version"`
}

// handleGlobals snapshots the advertised globals. Globals registered or
// destroyed while the loop is running are picked up on the next call;
// the usual pattern registers them during setup anyway.
func (s *Server) handleGlobals(w http.ResponseWriter, _ *http.Request) {
	globals := s.loop.Globals()
	out := make([]globalInfo, 0, len(globals))
	for _, g := range globals {
		out = append(out, globalInfo{
			Name:      g.Name(),
			Interface: g.Interface().Name,
			Version:   g.Version(),
		})
	}
	writeJSON(w, s.logger, out)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, s.loop.Metrics())
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}
