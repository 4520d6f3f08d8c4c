package workers

import (
	"c2c-client/observability"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	submitted []string
	left      int
}

func (f *fakeSession) Submit(text string) error { f.submitted = append(f.submitted, text); return nil }
func (f *fakeSession) Leave() { f.left++ }
func (f *fakeSession) Members() []string { return []string{"alice", "bob"} }
func (f *fakeSession) InviteLink() string { return "https://chat.example/join/room-1" }

type fakeConsole struct {
	members [][]string
	invites []string
	stats   int
	help    int
}

func (f *fakeConsole) PrintMembers(members []string) { f.members = append(f.members, members) }
func (f *fakeConsole) PrintInvite(link string) { f.invites = append(f.invites, link) }
func (f *fakeConsole) PrintStats(observability.MonitoringStats) { f.stats++ }
func (f *fakeConsole) PrintHelp([]string) { f.help++ }

type fakeStats struct{}

func (fakeStats) GetLatest() observability.MonitoringStats { return observability.MonitoringStats{} }

func runInput(t *testing.T, in io.Reader, session *fakeSession, console *fakeConsole) error {
	t.Helper()
	w := NewInputWorker(slog.New(slog.DiscardHandler), in, session, console, fakeStats{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return w.Run(ctx)
}

func TestInputWorker_DispatchesCommands(t *testing.T) {
	req := require.New(t)
	session := &fakeSession{}
	console := &fakeConsole{}
	in := strings.NewReader("hello\n/members\n/invite\n/stats\n/help\n  /leave  \nnever sent\n")

	err := runInput(t, in, session, console)

	// Then every command ran and /leave ended the worker
	req.NoError(err)
	req.Equal([]string{"hello"}, session.submitted)
	req.Equal([][]string{{"alice", "bob"}}, console.members)
	req.Equal([]string{"https://chat.example/join/room-1"}, console.invites)
	req.Equal(1, console.stats)
	req.Equal(1, console.help)
	req.Equal(1, session.left)
}

func TestInputWorker_EndOfInputLeaves(t *testing.T) {
	req := require.New(t)
	session := &fakeSession{}

	err := runInput(t, strings.NewReader("bye"), session, &fakeConsole{})

	req.NoError(err)
	req.Equal([]string{"bye"}, session.submitted)
	req.Equal(1, session.left)
}

func TestInputWorker_StopsOnCancel(t *testing.T) {
	req := require.New(t)
	pr, pw := io.Pipe()
	defer pw.Close()
	session := &fakeSession{}
	w := NewInputWorker(slog.New(slog.DiscardHandler), pr, session, &fakeConsole{}, fakeStats{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.ErrorIs(w.Run(ctx), context.Canceled)
	req.Zero(session.left)
}
