package evaluator

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/agentarena/internal/tournament"
)

// spectatorEvent is one JSON message pushed to every connected spectator.
// Kind is one of "match_start", "match_finish", or "tournament_finish".
type spectatorEvent struct {
	Kind      string            `json:"kind"`
	Match     string            `json:"match,omitempty"`
	Scores    map[string]string `json:"scores,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// spectatorFeed is a read-only "/ws" broadcast endpoint: match progress
// fanned out to any number of connected dashboards. Mirrors the teacher's
// own internal/server.Server shape — a net.Listen'd http.Server serving a
// gorilla/websocket upgrade off a ServeMux, with a graceful Shutdown — cut
// down to the one route this evaluator needs, since it only ever pushes
// events outward and never reads a connected spectator's messages.
type spectatorFeed struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mu      sync.Mutex
	clients map[*websocket.Conn]chan spectatorEvent
}

func newSpectatorFeed(addr string, logger zerolog.Logger) (*spectatorFeed, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	f := &spectatorFeed{
		logger: logger.With().Str("component", "spectator").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		listener: listener,
		clients:  make(map[*websocket.Conn]chan spectatorEvent),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleWebSocket)
	f.server = &http.Server{Handler: mux}

	go func() {
		if err := f.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			f.logger.Error().Err(err).Msg("spectator feed server stopped")
		}
	}()
	f.logger.Info().Str("addr", listener.Addr().String()).Msg("spectator feed listening")

	return f, nil
}

func (f *spectatorFeed) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn().Err(err).Msg("spectator upgrade failed")
		return
	}

	out := make(chan spectatorEvent, 32)
	f.mu.Lock()
	f.clients[conn] = out
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.clients, conn)
		f.mu.Unlock()
		conn.Close()
	}()

	for event := range out {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// broadcast fans event out to every currently connected spectator. A
// client whose outbound channel is full is dropped rather than blocking
// the match that produced the event — a slow dashboard should never slow
// down the tournament it is merely observing.
func (f *spectatorFeed) broadcast(event spectatorEvent) {
	event.Timestamp = time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, out := range f.clients {
		select {
		case out <- event:
		default:
			f.logger.Warn().Msg("spectator too slow, dropping connection")
			delete(f.clients, conn)
			close(out)
		}
	}
}

func (f *spectatorFeed) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = f.server.Shutdown(ctx)

	f.mu.Lock()
	for conn, out := range f.clients {
		close(out)
		conn.Close()
	}
	f.clients = nil
	f.mu.Unlock()
}

// scoresToStrings renders a FinalScore map through fmt.Stringer for the
// wire — spectators get the same human-readable text the CLI prints, not
// a parallel machine encoding of each strategy's internal score shape.
func scoresToStrings(scores map[string]tournament.FinalScore) map[string]string {
	out := make(map[string]string, len(scores))
	for name, s := range scores {
		out[name] = s.String()
	}
	return out
}
