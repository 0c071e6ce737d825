package liveupdate

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const textMessage = websocket.TextMessage

// The server pings each client every pingInterval to detect dead peers
// between message deliveries; a pong must arrive within pongWait.
const (
	pingInterval = 10 * time.Second
	pongWait     = pingInterval + 5*time.Second
)

// Server upgrades incoming connections on any path and keeps them registered
// with the hub for the fanout loop.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub) *Server {
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ws, err = s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// A response has already been sent to the client by the upgrader.
		log.WithFields(log.Fields{"err": err, "client": r.RemoteAddr}).
			Warn("failed to upgrade liveupdate request to websocket")
		return
	}
	log.WithField("client", r.RemoteAddr).Info("websocket connection opened")

	s.hub.add(ws)
	// The registry must be left consistent no matter how this handler exits.
	defer func() {
		log.WithField("client", r.RemoteAddr).Info("websocket connection closed")
		s.hub.remove(ws)
		_ = ws.Close()
	}()

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	// The read loop consumes pongs and observes the peer closing. Clients
	// send no payload of their own.
	var done = make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var ticker = time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			var deadline = time.Now().Add(writeTimeout)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
