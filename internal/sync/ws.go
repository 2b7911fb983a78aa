package sync

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"titletrack/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tokens, not origins, gate access
	},
}

// WSHandler upgrades authenticated clients. Browsers cannot set headers on
// websocket requests, so the token may also come as ?token=.
func WSHandler(hub *Hub, tokens auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Query("token"))
		if raw == "" {
			raw = auth.BearerToken(c.GetHeader("Authorization"))
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.AddWS(ws, claims.UserID)
		log.Debug().Str("user", claims.UserID).Msg("[ws] client connected")

		// drain until the client goes away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Debug().Str("user", claims.UserID).Msg("[ws] client disconnected")
	}
}
