package e2e

import (
	"bytes"
	roomapi "c2c-client/infrastructure/http/client"
	"c2c-client/internal"
	"c2c-client/internal/app"
	"c2c-client/internal/chattest"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseChatSuite struct {
	suite.Suite
	Config Config
	Server *chattest.Server

	participants []*Participant
}

// SetupSuite loads the environment configuration and starts a local server
// unless one is configured.
func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	if s.Config.ServerURL == "" {
		s.Server = chattest.NewServer()
		s.Config.ServerURL = s.Server.WebsocketURL()
		s.Config.APIURL = s.Server.URL()
	}
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.Server != nil {
		s.Server.Close()
	}
}

// ClientConfig uses short delays so reconnects happen within the test timeout.
func (s *BaseChatSuite) ClientConfig() internal.Config {
	return internal.Config{
		ServerURL:            s.Config.ServerURL,
		APIURL:               s.Config.APIURL,
		InviteBaseURL:        "http://localhost:3000",
		LogLevel:             "DEBUG",
		MetricInterval:       time.Second,
		HeartbeatInterval:    time.Second,
		ReconnectMaxAttempts: 5,
		ReconnectBaseDelay:   25 * time.Millisecond,
		ReconnectMaxDelay:    200 * time.Millisecond,
		DialTimeout:          time.Second,
		WriteTimeout:         time.Second,
		BeaconTimeout:        time.Second,
		MaxNicknameLength:    20,
		MaxMessageLength:     2048,
		RedirectDelay:        100 * time.Millisecond,
		LeaveRedirectDelay:   50 * time.Millisecond,
	}
}

// Participant is one running client: what it prints and where its input goes.
type Participant struct {
	App     *app.App
	Output  *Screen
	Logs    *Screen
	Input   *io.PipeWriter
	stopped chan struct{}
	err     error
}

func (p *Participant) Type(line string) {
	_, _ = fmt.Fprintln(p.Input, line)
}

// Stopped is closed once Run returned; Err is valid afterwards.
func (p *Participant) Stopped() <-chan struct{} {
	return p.stopped
}

func (p *Participant) Err() error {
	<-p.stopped
	return p.err
}

// Join starts a client in room as name. It runs until ctx is done or the
// session sends it home.
func (s *BaseChatSuite) Join(ctx context.Context, room, name string) *Participant {
	header := fmt.Sprintf("  ====== %s joins %s ======", name, room)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	pr, pw := io.Pipe()
	p := &Participant{Output: &Screen{}, Logs: &Screen{}, Input: pw, stopped: make(chan struct{})}
	log := slog.New(slog.NewTextHandler(p.Logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := app.New(log, s.ClientConfig(), room, name, pr, p.Output)
	s.Require().NoError(err)
	p.App = a

	go func() {
		defer close(p.stopped)
		p.err = a.Run(ctx)
		_ = pr.Close()
	}()
	s.participants = append(s.participants, p)
	return p
}

// stopAll waits for every participant; callers cancel their ctx first.
func (s *BaseChatSuite) stopAll() {
	for _, p := range s.participants {
		<-p.stopped
	}
	s.participants = nil
}

// WithRoom runs fn against a fresh room with its own deadline.
func (s *BaseChatSuite) WithRoom(name string, fn func(ctx context.Context, room string)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout)
	defer s.stopAll()
	defer cancel()

	room := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	if s.Server != nil {
		s.Server.OpenRoom(room)
	} else {
		created, err := roomapi.NewRoomClient(s.Config.APIURL, nil).CreateRoom(ctx, "e2e")
		s.Require().NoError(err)
		room = string(created)
	}
	fn(ctx, room)
}

func (s *BaseChatSuite) EventuallyPrinted(p *Participant, text string) {
	s.Require().Eventually(func() bool {
		return strings.Contains(p.Output.String(), text)
	}, s.Config.Timeout, 10*time.Millisecond, "never printed %q, got:\n%s", text, p.Output.String())
}

// Screen is a goroutine-safe terminal capture.
type Screen struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *Screen) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
