// Package stream serves reconstructed trial ticks to viewers over
// WebSocket. On connect a client receives a trial_info envelope; every
// cursor advance then produces one tick envelope per subscriber.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	ws "github.com/gorilla/websocket"

	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

// Envelope message types.
const (
	TypeTrialInfo = "trial_info"
	TypeTick      = "tick"
)

// Envelope is the wire frame: a type tag and a raw payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TrialInfoPayload describes the loaded trial to a new subscriber.
type TrialInfoPayload struct {
	TrialNumber string                       `json:"trialNumber"`
	TeamNumber  string                       `json:"teamNumber"`
	MapName     string                       `json:"mapName"`
	TimeSteps   int                          `json:"timeSteps"`
	Roles       [model.NumPlayers]model.Role `json:"roles"`
	Victims     []model.Victim               `json:"victims"`
	Rubble      []model.Position             `json:"rubble"`
}

// TickPayload carries the state of one tick.
type TickPayload struct {
	Tick     int  `json:"tick"`
	Score    int  `json:"score"`
	Blackout bool `json:"blackout"`

	Positions [model.NumPlayers]*model.Position    `json:"positions"`
	Yaws      [model.NumPlayers]float64            `json:"yaws"`
	Actions   [model.NumPlayers]model.Action       `json:"actions"`
	Equipped  [model.NumPlayers]model.EquippedItem `json:"equipped"`

	PlacedMarkers  []model.Marker `json:"placedMarkers,omitempty"`
	RemovedMarkers []model.Marker `json:"removedMarkers,omitempty"`
	SavedVictims   []model.Victim `json:"savedVictims,omitempty"`
}

// Server broadcasts trial playback to connected WebSocket clients.
type Server struct {
	trial  *trial.Trial
	logger *slog.Logger

	upgrader ws.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	httpServer *http.Server
}

// NewServer creates a playback stream server for the given trial.
func NewServer(t *trial.Trial, logger *slog.Logger) *Server {
	return &Server{
		trial:  t,
		logger: logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe runs the stream server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("Stream server listening", "addr", addr)

	select {
	case <-ctx.Done():
		s.closeClients()
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, s.logger)

	info, err := marshalEnvelope(TypeTrialInfo, s.trialInfo())
	if err != nil {
		s.logger.Error("Failed to marshal trial info", "error", err)
		conn.Close()
		return
	}
	c.enqueue(info)

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("Viewer connected", "remote", conn.RemoteAddr().String())

	go c.writePump()
	go func() {
		c.readUntilClose()
		s.drop(c)
	}()
}

// Broadcast sends the given tick to all connected clients. Safe to use
// as a playback tick listener.
func (s *Server) Broadcast(tick int) {
	if tick < 0 || tick >= s.trial.TimeSteps {
		return
	}

	data, err := marshalEnvelope(TypeTick, s.tickPayload(tick))
	if err != nil {
		s.logger.Error("Failed to marshal tick", "tick", tick, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.enqueue(data)
	}
}

// ClientCount returns the number of connected viewers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	if ok {
		c.close()
		s.logger.Info("Viewer disconnected")
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) trialInfo() TrialInfoPayload {
	return TrialInfoPayload{
		TrialNumber: s.trial.Metadata.TrialNumber,
		TeamNumber:  s.trial.Metadata.TeamNumber,
		MapName:     s.trial.Metadata.MapBlockFilename,
		TimeSteps:   s.trial.TimeSteps,
		Roles:       s.trial.Metadata.Roles,
		Victims:     s.trial.VictimList,
		Rubble:      s.trial.RubbleList,
	}
}

func (s *Server) tickPayload(tick int) TickPayload {
	p := TickPayload{
		Tick:     tick,
		Score:    s.trial.Scores[tick],
		Blackout: s.trial.ActiveBlackout[tick],

		PlacedMarkers:  s.trial.PlacedMarkers[tick].Sorted(),
		RemovedMarkers: s.trial.RemovedMarkers[tick].Sorted(),
		SavedVictims:   s.trial.SavedVictims[tick].Sorted(),
	}
	for c := 0; c < model.NumPlayers; c++ {
		if pos, ok := s.trial.PositionAt(model.PlayerColor(c), tick); ok {
			posCopy := pos
			p.Positions[c] = &posCopy
		}
		p.Yaws[c] = s.trial.Yaws[c][tick]
		p.Actions[c] = s.trial.Actions[c][tick]
		p.Equipped[c] = s.trial.EquippedItems[c][tick]
	}
	return p
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
