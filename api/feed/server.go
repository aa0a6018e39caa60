// Package feed streams live snapshots and price schedules to dashboard
// clients over WebSocket. Clients get a frame on every evaluation cycle;
// a fallback poll covers quiet periods.
package feed

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/homewatt/homewatt/core/events"
	"github.com/homewatt/homewatt/core/model"
	"github.com/homewatt/homewatt/core/pricing"
	"github.com/homewatt/homewatt/infra/logger"
	"github.com/homewatt/homewatt/internal/eventbus"
)

// Config holds the feed server settings.
type Config struct {
	Address        string `json:"address"`
	PollSeconds    int    `json:"poll_seconds"`
	BackoffSeconds int    `json:"backoff_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.PollSeconds == 0 {
		c.PollSeconds = 30
	}
	if c.BackoffSeconds == 0 {
		c.BackoffSeconds = 5
	}
}

// Provider supplies the data pushed to clients. The state reader
// implements it.
type Provider interface {
	Read(ctx context.Context) (model.SystemState, error)
	ReadSchedule(ctx context.Context) ([]model.PricePoint, error)
}

// Frame is one message on the feed.
type Frame struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "snapshot", "decisions" or "schedule"
	Time string `json:"time"`
	Data any    `json:"data"`
}

// Server pushes frames to connected WebSocket clients.
type Server struct {
	cfg      Config
	provider Provider
	bus      eventbus.EventBus
	log      logger.Logger

	upgrader websocket.Upgrader
	srv      *http.Server
	addr     string

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

// NewServer creates a feed server.
func NewServer(cfg Config, provider Provider, bus eventbus.EventBus) *Server {
	cfg.SetDefaults()
	return &Server{
		cfg:      cfg,
		provider: provider,
		bus:      bus,
		log:      logger.New("feed"),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
	}
}

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() string { return s.addr }

// Start runs the server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) { s.handleWS(ctx, w, r) })
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: mux}

	if s.bus != nil {
		go s.pump(ctx)
	}
	go s.poll(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("feed listening on %s", s.addr)
	err = s.srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Debugf("client connected: %s", conn.RemoteAddr())

	s.sendInitial(ctx, c)

	// Reads are discarded; the read loop only detects disconnects.
	go func() {
		defer s.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// sendInitial pushes the current snapshot and schedule to a new client.
func (s *Server) sendInitial(ctx context.Context, c *client) {
	if st, err := s.provider.Read(ctx); err == nil {
		_ = c.send(newFrame("snapshot", st))
	}
	if schedule, err := s.provider.ReadSchedule(ctx); err == nil && len(schedule) > 0 {
		_ = c.send(newFrame("schedule", schedulePayload(schedule)))
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		_ = c.conn.Close()
	}
	s.mu.Unlock()
}

func (s *Server) broadcast(f Frame) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		if err := c.send(f); err != nil {
			s.drop(c)
		}
	}
}

// pump forwards bus events to connected clients.
func (s *Server) pump(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.SnapshotEvent:
				s.broadcast(newFrame("snapshot", e.State))
			case events.DecisionEvent:
				s.broadcast(newFrame("decisions", decisionPayload(e)))
			case events.PriceChangeEvent:
				if schedule, err := s.provider.ReadSchedule(ctx); err == nil && len(schedule) > 0 {
					s.broadcast(newFrame("schedule", schedulePayload(schedule)))
				}
			}
		}
	}
}

// poll reads the provider on a fixed interval so clients see fresh data
// even without cycles. Failed reads retry on a shorter backoff.
func (s *Server) poll(ctx context.Context) {
	interval := time.Duration(s.cfg.PollSeconds) * time.Second
	backoff := time.Duration(s.cfg.BackoffSeconds) * time.Second
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		st, err := s.provider.Read(ctx)
		if err != nil {
			s.log.Warnf("poll failed, retrying in %s: %v", backoff, err)
			timer.Reset(backoff)
			continue
		}
		s.broadcast(newFrame("snapshot", st))
		timer.Reset(interval)
	}
}

func newFrame(kind string, data any) Frame {
	return Frame{
		ID:   uuid.NewString(),
		Type: kind,
		Time: time.Now().Format(time.RFC3339),
		Data: data,
	}
}

// schedulePayload pairs the raw schedule with its statistics and a
// relative level per point so dashboards can color the day's bars.
func schedulePayload(points []model.PricePoint) map[string]any {
	st := pricing.Stats(points)
	levels := make([]string, len(points))
	for i, p := range points {
		levels[i] = pricing.RelativeLevel(p.Price, st).String()
	}
	return map[string]any{
		"points": points,
		"stats":  st,
		"levels": levels,
	}
}

func decisionPayload(e events.DecisionEvent) map[string]any {
	kinds := make([]string, len(e.Decisions))
	for i, d := range e.Decisions {
		kinds[i] = d.Kind.String()
	}
	return map[string]any{
		"cycle_id":  e.CycleID,
		"decisions": kinds,
	}
}

// DecodeFrame parses a received frame, for clients and tests.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}
