package chat

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"parlor/appcontext"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly for production
	},
}

// bearerToken extracts the handshake credential. Browsers cannot set
// headers on WebSocket requests, so a token query parameter is accepted
// alongside the Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// WebSocketHandler authenticates the handshake and hands the connection to
// the coordinator. A connection that fails verification is refused before
// any event is processed.
func WebSocketHandler(coord *Coordinator, verifier Verifier) func(*appcontext.AppContext) {
	return func(ctx *appcontext.AppContext) {
		username, err := verifier.Verify(bearerToken(ctx.Request))
		if err != nil {
			ctx.Logger.Printf("WebSocket handshake rejected: %v", err)
			http.Error(ctx.Writer, "Authentication required", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			ctx.Logger.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(conn, coord, username)
		coord.Register(client)

		go client.writePump()
		go client.readPump()
	}
}
