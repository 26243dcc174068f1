package signaling

import (
	"log"
	"net/http"

	internaljwt "devconnect-backend/internal/jwt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests into signaling connections.
type Handler struct {
	hub    *Hub
	secret []byte
}

func NewHandler(hub *Hub, secret []byte) *Handler {
	return &Handler{
		hub:    hub,
		secret: secret,
	}
}

// ServeWS opens a signaling connection. The user identity arrives as a signed
// token in the query string; a missing or invalid token does not reject the
// connection, it only leaves every room operation failing with an
// authentication error.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := ""
	if token := r.URL.Query().Get("token"); token != "" {
		userID, err = internaljwt.ParseUserID(token, h.secret)
		if err != nil {
			log.Printf("[signaling] invalid connect token: %v", err)
			userID = ""
		}
	}

	cl := newClient(conn, uuid.NewString(), userID)
	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writePump()
	go cl.readPump(h.hub)
}
