package sync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titletrack/internal/auth"
)

func newWSServer(t *testing.T, hub *Hub, tokens auth.TokenService) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", WSHandler(hub, tokens))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, token string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	var hello map[string]string
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, "welcome", hello["type"])
	return ws
}

func TestPublishReachesOnlyOwner(t *testing.T) {
	tokens := auth.TokenService{Secret: []byte("s"), Issuer: "titletrack", Duration: time.Hour}
	hub := NewHub()
	url := newWSServer(t, hub, tokens)

	alice, _, err := tokens.Sign("alice", "")
	require.NoError(t, err)
	bob, _, err := tokens.Sign("bob", "")
	require.NoError(t, err)

	wa := dial(t, url, alice)
	wb := dial(t, url, bob)
	assert.Equal(t, Stats{WSClients: 2, Users: 2}, hub.Stats())

	hub.Publish(TitleEvent{Type: EventTitleRefresh, UserID: "alice", TitleID: "t1", Total: 12})

	var got TitleEvent
	require.NoError(t, wa.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, wa.ReadJSON(&got))
	assert.Equal(t, EventTitleRefresh, got.Type)
	assert.Equal(t, "t1", got.TitleID)
	assert.Equal(t, 12, got.Total)
	assert.False(t, got.At.IsZero())

	require.NoError(t, wb.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err = wb.ReadMessage()
	assert.Error(t, err, "bob must not see alice's events")
}

func TestWSRejectsMissingToken(t *testing.T) {
	hub := NewHub()
	url := newWSServer(t, hub, auth.TokenService{Secret: []byte("s")})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, hub.Stats().WSClients)
}

func TestTitleEventJSON(t *testing.T) {
	b, err := json.Marshal(TitleEvent{Type: EventTitleDelete, UserID: "u", TitleID: "t", At: time.Unix(0, 0).UTC()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"title.delete","user_id":"u","title_id":"t","at":"1970-01-01T00:00:00Z"}`, string(b))
}
