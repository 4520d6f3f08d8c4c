package app

import (
	"bytes"
	"c2c-client/errors"
	"c2c-client/internal"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() internal.Config {
	return internal.Config{
		ServerURL:            "ws://127.0.0.1:1/ws",
		APIURL:               "http://127.0.0.1:1",
		InviteBaseURL:        "https://chat.example",
		LogLevel:             "INFO",
		MetricInterval:       time.Minute,
		HeartbeatInterval:    10 * time.Second,
		ReconnectMaxAttempts: 5,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		DialTimeout:          time.Second,
		WriteTimeout:         time.Second,
		BeaconTimeout:        time.Second,
		MaxNicknameLength:    20,
		MaxMessageLength:     2048,
		NicknameBlocklist:    "moderator",
	}
}

func TestNew_RejectsBlockedName(t *testing.T) {
	req := require.New(t)

	_, err := New(slog.New(slog.DiscardHandler), testConfig(), "room-1", "Moderator", strings.NewReader(""), &bytes.Buffer{})

	req.ErrorIs(err, errors.ErrInvalidIdentity)
}

func TestNew_BuildsSession(t *testing.T) {
	req := require.New(t)

	a, err := New(slog.New(slog.DiscardHandler), testConfig(), " room-1 ", "alice", strings.NewReader(""), &bytes.Buffer{})

	req.NoError(err)
	req.Equal("room-1", string(a.Identity().RoomID))
	req.Equal("https://chat.example/join/room-1", a.Session().InviteLink())
}

func TestTransportConfig(t *testing.T) {
	cfg := TransportConfig(testConfig())

	require.Equal(t, 5, cfg.Policy.MaxAttempts)
	require.Equal(t, 30*time.Second, cfg.Policy.MaxDelay)
	require.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
}
