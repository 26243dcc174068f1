package signaling

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one live signaling connection. ID is server-assigned for the
// connection's lifetime; UserID is the identity presented at connect time and
// stays empty for unauthenticated connections.
type Client struct {
	Conn   *websocket.Conn
	ID     string
	UserID string

	send     chan *ServerMessage
	done     chan struct{} // Signal for coordinating goroutine shutdown
	mu       sync.Mutex    // Mutex for connection access
	isClosed bool
}

func newClient(conn *websocket.Conn, id, userID string) *Client {
	return &Client{
		Conn:   conn,
		ID:     id,
		UserID: userID,
		send:   make(chan *ServerMessage, 32),
		done:   make(chan struct{}),
	}
}

func (cl *Client) keepAlive() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("[signaling] ping error for client %s: %v", cl.ID, err)
				return
			}
		}
	}
}

func (cl *Client) writePump() {
	defer func() {
		cl.mu.Lock()
		cl.isClosed = true
		cl.Conn.Close()
		cl.mu.Unlock()
	}()

	for {
		select {
		case <-cl.done:
			return
		case msg, ok := <-cl.send:
			if !ok {
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteJSON(msg)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("[signaling] error sending to client %s: %v", cl.ID, err)
				return
			}
		}
	}
}

func (cl *Client) readPump(hub *Hub) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[signaling] recovered from panic in readPump: %v", r)
		}

		close(cl.done)
		hub.Unregister <- cl
		log.Printf("[signaling] client %s disconnected", cl.ID)
	}()

	cl.Conn.SetReadLimit(512 * 1024)

	for {
		_, raw, err := cl.Conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived {
					break
				}
			}
			log.Printf("[signaling] error reading from client %s: %v", cl.ID, err)
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[signaling] malformed frame from client %s: %v", cl.ID, err)
			continue
		}
		msg.client = cl

		hub.Inbound <- &msg
	}
}
