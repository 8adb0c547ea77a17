package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/inkpress/backend/internal/middleware"
	"github.com/anonto42/inkpress/backend/internal/models"
	"github.com/anonto42/inkpress/backend/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const testSecret = "ws-secret"

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(logger.Discard())
	e := echo.New()
	NewHandler(hub, logger.Discard(), nil).RegisterRoutes(e, middleware.WebSocketAuth(testSecret))
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID uint) *websocket.Conn {
	t.Helper()
	token, err := middleware.GenerateToken(testSecret, &models.User{ID: userID, Username: "u"})
	if err != nil {
		t.Fatal(err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) reply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var r reply
	if err := conn.ReadJSON(&r); err != nil {
		t.Fatalf("read: %v", err)
	}
	return r
}

func TestJoinAndReceivePush(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv, 2)

	if err := conn.WriteJSON(map[string]interface{}{"type": "join-room", "userId": 2}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "joined" || r.UserID != 2 {
		t.Fatalf("reply = %+v, want joined", r)
	}

	if n := hub.Publish(2, []byte(`{"event":"new-notification"}`)); n != 1 {
		t.Fatalf("Publish = %d, want 1", n)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != `{"event":"new-notification"}` {
		t.Errorf("push = %s", msg)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "join-room", "userId": 2}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Error != "already_joined" {
		t.Errorf("second join reply = %+v", r)
	}
}

func TestJoinRejectsForeignIdentity(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv, 1)

	if err := conn.WriteJSON(map[string]interface{}{"type": "join-room", "userId": 2}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "error" || r.Error != "identity_mismatch" {
		t.Fatalf("reply = %+v, want identity_mismatch", r)
	}
	if hub.Subscribers(2) != 0 || hub.Subscribers(1) != 0 {
		t.Error("mismatched join subscribed the connection")
	}
}

func TestUnknownFrames(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Error != "invalid_json" {
		t.Errorf("reply = %+v, want invalid_json", r)
	}
	if err := conn.WriteJSON(map[string]string{"type": "leave"}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Error != "unsupported_type" {
		t.Errorf("reply = %+v, want unsupported_type", r)
	}
}

func TestDisconnectUnsubscribes(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv, 4)
	if err := conn.WriteJSON(map[string]interface{}{"type": "join-room"}); err != nil {
		t.Fatal(err)
	}
	if r := readReply(t, conn); r.Type != "joined" || r.UserID != 4 {
		t.Fatalf("reply = %+v", r)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers(4) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection still subscribed after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUpgradeRequiresToken(t *testing.T) {
	_, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v, want 401", resp)
	}
}
