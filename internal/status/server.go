package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	// Events buffered per websocket client.
	clientBuffer = 32

	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Status is read-only and carries nothing secret; allow any page to
	// display it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes a Hub over HTTP:
//
//	GET /status  latest event of each kind, as a JSON object
//	GET /ws      websocket streaming every event as a JSON text message
type Server struct {
	hub    *Hub
	server *http.Server
}

func NewServer(addr string, hub *Hub) *Server {
	router := http.NewServeMux()
	s := &Server{
		hub: hub,
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
	}
	router.HandleFunc("/status", s.handleStatus)
	router.HandleFunc("/ws", s.handleWebsocket)
	return s
}

// Handler returns the HTTP handler, for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrap(err, "status server")
	}
	log.Info("Status available at http://%s/status", ln.Addr())
	if err := s.server.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.hub.Latest()); err != nil {
		log.Warn("status: %v", err)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade: %v", err)
		return
	}
	defer ws.Close()

	events := s.hub.Subscribe(clientBuffer)
	defer s.hub.Unsubscribe(events)

	// Reader goroutine notices when the client goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	log.Debug("Websocket client %s connected", r.RemoteAddr)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(e); err != nil {
				log.Debug("Websocket client %s: %v", r.RemoteAddr, err)
				return
			}
		case <-gone:
			log.Debug("Websocket client %s disconnected", r.RemoteAddr)
			return
		}
	}
}
