// Package app wires one chat session: validator, transport, session
// controller, terminal renderer and the workers that drive them.
package app

import (
	"c2c-client/contract"
	"c2c-client/domain"
	roomapi "c2c-client/infrastructure/http/client"
	"c2c-client/internal"
	"c2c-client/moderation"
	"c2c-client/observability"
	"c2c-client/runtime/workers"
	"c2c-client/services"
	"c2c-client/transport"
	"c2c-client/ui"
	"c2c-client/validation"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

type App struct {
	log        *slog.Logger
	config     internal.Config
	session    *services.ChatSession
	transport  *transport.Transport
	terminal   *ui.Terminal
	monitoring *observability.MonitoringManager
	input      io.Reader
}

// NewValidator builds the validator with the embedded blocklist plus
// NICKNAME_BLOCKLIST.
func NewValidator(config internal.Config) (*validation.Validator, error) {
	blocklist, err := moderation.DefaultBlocklist(config.ExtraBlockedNames()...)
	if err != nil {
		return nil, err
	}
	opts := validation.DefaultOptions()
	opts.MaxIdentityLength = config.MaxNicknameLength
	opts.MaxContentLength = config.MaxMessageLength
	opts.Blocklist = blocklist
	return validation.New(opts)
}

func TransportConfig(config internal.Config) transport.Config {
	return transport.Config{
		HeartbeatInterval: config.HeartbeatInterval,
		DialTimeout:       config.DialTimeout,
		BeaconTimeout:     config.BeaconTimeout,
		Policy: transport.ReconnectPolicy{
			MaxAttempts: config.ReconnectMaxAttempts,
			BaseDelay:   config.ReconnectBaseDelay,
			MaxDelay:    config.ReconnectMaxDelay,
		},
	}
}

// New validates the identity first; nothing connects before Run.
func New(log *slog.Logger, config internal.Config, roomCode, displayName string, in io.Reader, out io.Writer) (*App, error) {
	v, err := NewValidator(config)
	if err != nil {
		return nil, err
	}

	a := &App{
		log:        log,
		config:     config,
		terminal:   ui.NewTerminal(out, config.Colours),
		monitoring: observability.NewMonitoringManager(log, nil),
		input:      in,
	}
	dialer := transport.NewWebsocketDialer(config.ServerURL, config.DialTimeout, config.WriteTimeout)
	rooms := roomapi.NewRoomClient(config.APIURL, nil)

	session, err := services.NewChatSession(
		services.Config{
			RedirectDelay:      config.RedirectDelay,
			LeaveRedirectDelay: config.LeaveRedirectDelay,
			InviteBaseURL:      config.InviteBaseURL,
		},
		roomCode, displayName, v, a.terminal,
		func(handler contract.TransportHandler) contract.ITransport {
			a.transport = transport.New(TransportConfig(config), dialer, handler,
				transport.WithDiagnostics(a.monitoring),
				transport.WithLeaveNotifier(rooms),
				transport.WithLogger(log),
			)
			return a.transport
		},
		services.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	a.session = session
	return a, nil
}

func (a *App) Identity() domain.SessionIdentity {
	return a.session.Identity()
}

func (a *App) Session() *services.ChatSession {
	return a.session
}

func (a *App) Monitoring() *observability.MonitoringManager {
	return a.monitoring
}

// Run connects and blocks until ctx is done or the session sends the user
// home. The transport tears down (leave frame or beacon) before Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.terminal.Home():
			cancel()
		case <-ctx.Done():
		}
	}()

	if a.config.DebugPort > 0 {
		internal.StartDebugServer(ctx, a.log, a.config.DebugPort, a.monitoring, func() string {
			return a.transport.State().String()
		})
	}

	identity := a.session.Identity()
	a.log.Info("Joining room", "room", identity.RoomID, "name", identity.ParticipantID)
	a.terminal.PrintInvite(a.session.InviteLink())
	a.session.Start()

	supervisor := workers.NewSupervisor(a.log, workers.WithDiagnostics(a.monitoring))
	supervisor.Add(
		a.transport,
		workers.NewInputWorker(a.log, a.input, a.session, a.terminal, a.monitoring),
		workers.NewTelemetryWorker(a.log, nil, a.config.MetricInterval, a.monitoring),
	).Run(ctx)

	if !a.session.Ended() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("session stopped: %w", ctx.Err())
	}
	return nil
}
