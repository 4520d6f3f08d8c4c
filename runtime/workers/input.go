package workers

import (
	"bufio"
	"c2c-client/errors"
	"c2c-client/observability"
	"c2c-client/validation"
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"strings"
)

const (
	membersCommand = "/members"
	inviteCommand  = "/invite"
	statsCommand   = "/stats"
	leaveCommand   = "/leave"
	helpCommand    = "/help"
)

// Session is the part of the chat session the input loop drives.
type Session interface {
	Submit(text string) error
	Leave()
	Members() []string
	InviteLink() string
}

// Console prints the answers to slash commands.
type Console interface {
	PrintMembers(members []string)
	PrintInvite(link string)
	PrintStats(stats observability.MonitoringStats)
	PrintHelp(commands []string)
}

type StatsProvider interface {
	GetLatest() observability.MonitoringStats
}

// InputWorker reads one line at a time and either runs a slash command or
// submits the line as a chat message. It finishes on /leave or end of input.
type InputWorker struct {
	log     *slog.Logger
	lines   <-chan string
	session Session
	console Console
	stats   StatsProvider
}

func NewInputWorker(log *slog.Logger, in io.Reader, session Session, console Console, stats StatsProvider) *InputWorker {
	return &InputWorker{
		log:     log,
		lines:   scanLines(in),
		session: session,
		console: console,
		stats:   stats,
	}
}

// scanLines outlives any single Run: a restarted worker keeps reading the
// same stream.
func scanLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (w *InputWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-w.lines:
			if !ok {
				w.log.Info("Input closed, leaving the room")
				w.session.Leave()
				return nil
			}
			if done := w.handle(line); done {
				return nil
			}
		}
	}
}

func (w *InputWorker) handle(line string) bool {
	switch strings.TrimSpace(line) {
	case leaveCommand:
		w.session.Leave()
		return true
	case membersCommand:
		w.console.PrintMembers(w.session.Members())
	case inviteCommand:
		w.console.PrintInvite(w.session.InviteLink())
	case statsCommand:
		w.console.PrintStats(w.stats.GetLatest())
	case helpCommand:
		w.console.PrintHelp([]string{membersCommand, inviteCommand, statsCommand, leaveCommand, helpCommand})
	default:
		err := w.session.Submit(line)
		var vErr *validation.Error
		switch {
		case err == nil:
		case stdErrors.As(err, &vErr), stdErrors.Is(err, errors.ErrNotConnected):
			// already shown to the user
			w.log.Debug("Message not sent", "error", err)
		default:
			w.log.Warn("Message not sent", "error", err)
		}
	}
	return false
}
