package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/emberfall-games/emberfall/internal/game/actionqueue"
	"github.com/emberfall-games/emberfall/internal/game/battlemap"
	"github.com/emberfall-games/emberfall/internal/game/participant"
	"github.com/emberfall-games/emberfall/internal/game/session"
	"github.com/emberfall-games/emberfall/internal/platform/id"
	"github.com/emberfall-games/emberfall/internal/platform/timeouts"
)

// Client command types.
const (
	commandJoin          = "join"
	commandAction        = "action"
	commandRoll          = "roll"
	commandMove          = "move"
	commandMapActivate   = "map_activate"
	commandMapDeactivate = "map_deactivate"
)

type joinRequest struct {
	ParticipantID string                 `json:"participantId"`
	DisplayName   string                 `json:"displayName"`
	Character     *participant.Character `json:"character,omitempty"`
}

type actionRequest struct {
	Text string `json:"text"`
}

type rollRequest struct {
	Expression string `json:"expression"`
}

type moveRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// clientEnvelope mirrors Envelope with a raw payload so each command can
// decode its own shape.
type clientEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Server exposes the session over HTTP: a websocket endpoint for play and a
// health endpoint for probes.
type Server struct {
	orchestrator *session.Orchestrator
	hub          *Hub
	upgrader     websocket.Upgrader
}

// New creates a server bound to one session.
func New(o *session.Orchestrator, hub *Hub) *Server {
	return &Server{
		orchestrator: o,
		hub:          hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Session access control is handled at join time, not by origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves HTTP on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	log.Printf("[SERVER] listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}

// handleWS upgrades the connection and runs its read loop. The first frame
// must be a join command; everything before it is rejected.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] upgrade: %v", err)
		return
	}
	defer conn.Close()

	participantID, err := s.join(conn)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	defer func() {
		s.hub.Unregister(participantID, conn)
		s.orchestrator.Disconnect(participantID)
	}()

	s.readLoop(conn, participantID)
}

// join performs the handshake: it reads the join command, settles the
// participant identity, and attaches the connection to the hub before the
// session sends the state sync.
func (s *Server) join(conn *websocket.Conn) (string, error) {
	var env clientEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		return "", fmt.Errorf("read join: %w", err)
	}
	if env.Type != commandJoin {
		return "", fmt.Errorf("expected %s command, got %q", commandJoin, env.Type)
	}
	var req joinRequest
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return "", fmt.Errorf("decode join: %w", err)
		}
	}

	participantID := strings.TrimSpace(req.ParticipantID)
	if participantID == "" {
		generated, err := id.NewID()
		if err != nil {
			return "", fmt.Errorf("mint participant id: %w", err)
		}
		participantID = generated
	}

	s.hub.Register(participantID, conn)
	if _, err := s.orchestrator.Connect(participantID, req.DisplayName, req.Character); err != nil {
		s.hub.Unregister(participantID, conn)
		return "", fmt.Errorf("join session: %w", err)
	}
	return participantID, nil
}

func (s *Server) readLoop(conn *websocket.Conn, participantID string) {
	for {
		var env clientEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SERVER] read from %s: %v", participantID, err)
			}
			return
		}
		if err := s.dispatch(participantID, env); err != nil {
			s.hub.SendTo(participantID, session.EventError, session.ErrorPayload{Message: clientMessage(err)})
		}
	}
}

func (s *Server) dispatch(participantID string, env clientEnvelope) error {
	switch env.Type {
	case commandAction:
		var req actionRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return fmt.Errorf("decode action: %w", err)
		}
		_, err := s.orchestrator.SubmitAction(participantID, req.Text)
		return err
	case commandRoll:
		var req rollRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return fmt.Errorf("decode roll: %w", err)
		}
		_, err := s.orchestrator.RollDice(participantID, req.Expression)
		return err
	case commandMove:
		var req moveRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return fmt.Errorf("decode move: %w", err)
		}
		return s.orchestrator.MovePlayer(participantID, req.X, req.Y)
	case commandMapActivate:
		s.orchestrator.ActivateBattleMap()
		return nil
	case commandMapDeactivate:
		s.orchestrator.DeactivateBattleMap()
		return nil
	case commandJoin:
		return errors.New("already joined")
	default:
		return fmt.Errorf("unknown command %q", env.Type)
	}
}

// clientMessage maps errors to the stable strings sent to clients. Known
// rejections pass through; anything else is flattened so internals are not
// leaked.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrWrongPhase),
		errors.Is(err, session.ErrParticipantNotFound),
		errors.Is(err, actionqueue.ErrAlreadyActed),
		errors.Is(err, actionqueue.ErrEmptyAction),
		errors.Is(err, battlemap.ErrMapInactive),
		errors.Is(err, battlemap.ErrInvalidCoordinates):
		return err.Error()
	default:
		return "request rejected"
	}
}

func (s *Server) writeError(conn *websocket.Conn, err error) {
	env := Envelope{Type: session.EventError, Payload: session.ErrorPayload{Message: clientMessage(err)}}
	_ = conn.WriteJSON(env)
}
