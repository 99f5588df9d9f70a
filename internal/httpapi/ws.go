package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser consoles connect cross-origin from the desk UI; auth is the
	// bearer token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Events upgrades the connection and streams workspace push events until the
// client goes away.
func (h Handlers) Events(c *gin.Context) {
	workspaceID, ok := workspace(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	client := h.Hub.Register(workspaceID, uuid.NewString(), conn)
	if client == nil {
		_ = conn.Close()
		return
	}

	// Reads are only used to detect disconnect; the console never sends
	// application messages over this socket.
	conn.SetReadLimit(512)
	go func() {
		defer h.Hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
