package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/multiload"
)

const writeWait = 10 * time.Second

// StreamMessage is one websocket frame: the full snapshot on connect, then one
// "status" message per source change.
type StreamMessage struct {
	Type     string           `json:"type"`
	Snapshot *Snapshot        `json:"snapshot,omitempty"`
	Event    *multiload.Event `json:"event,omitempty"`
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied to the client
		s.log.Debug("websocket upgrade failed", swrcache.Fields{"err": err})
		return
	}
	defer conn.Close()

	events, cancel := s.loader.Subscribe(64)
	defer cancel()

	snap := s.snapshot("")
	if err := s.write(conn, StreamMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
		return
	}

	// the client sends nothing; reading surfaces the close frame
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.ping)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.write(conn, StreamMessage{Type: "status", Event: &ev}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.base.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Debug("websocket write failed", swrcache.Fields{"err": err})
		return err
	}
	return nil
}
