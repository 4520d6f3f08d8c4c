package transport

import (
	"c2c-client/domain"
	"c2c-client/protocol"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWebsocketDialer_RoundTrip(t *testing.T) {
	req := require.New(t)
	upgrader := websocket.Upgrader{}

	// Given a server answering join with a joined snapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil || env.Type != protocol.TypeJoin {
			return
		}
		_ = conn.WriteJSON(protocol.Envelope{Type: protocol.TypeJoined, Me: env.Token, Members: []string{env.Token}})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	dialer := NewWebsocketDialer("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// When the client dials and joins
	conn, err := dialer.Dial(ctx, domain.NewSessionIdentity("room-1", "alice"))
	req.NoError(err)
	req.NoError(conn.WriteJSON(protocol.Join("room-1", "alice")))

	// Then the snapshot comes back as a decodable frame
	data, err := conn.ReadMessage()
	req.NoError(err)
	env, err := protocol.Decode(data)
	req.NoError(err)
	req.Equal("alice", env.Me)

	// Then closing twice is harmless
	req.NoError(conn.Close())
	req.NoError(conn.Close())
}

func TestWebsocketDialer_Refused(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dialer := NewWebsocketDialer("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second, time.Second)

	_, err := dialer.Dial(context.Background(), domain.NewSessionIdentity("room-1", "alice"))

	req.ErrorIs(err, websocket.ErrBadHandshake)
}
