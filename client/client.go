package main

import (
	"c2c-client/domain"
	"c2c-client/errors"
	roomapi "c2c-client/infrastructure/http/client"
	"c2c-client/internal"
	"c2c-client/internal/app"
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type flags struct {
	room    string
	name    string
	server  string
	api     string
	envFile string
}

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run executes the command line and maps failures to an exit code.
func run(args []string) (int, error) {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if stdErrors.Is(err, errors.ErrInvalidConfig) || stdErrors.Is(err, errors.ErrInvalidIdentity) {
			return exitConfig, err
		}
		return exitRuntime, err
	}
	return exitOK, nil
}

func newRootCommand() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "c2c-chat",
		Short:         "Terminal client for c2c chat rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.room == "" {
				return fmt.Errorf("%w: --room is required", errors.ErrInvalidConfig)
			}
			return chat(cmd.Context(), f, f.room)
		},
	}
	root.PersistentFlags().StringVar(&f.name, "name", "", "display name")
	root.PersistentFlags().StringVar(&f.server, "server", "", "websocket endpoint (overrides CHAT_SERVER_URL)")
	root.PersistentFlags().StringVar(&f.api, "api", "", "REST base URL (overrides CHAT_API_URL)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "optional dotenv file")
	root.Flags().StringVar(&f.room, "room", "", "room code to join")

	root.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create a room and join it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				config, err := loadConfig(f)
				if err != nil {
					return err
				}
				// The creator name goes through the same checks as a join.
				v, err := app.NewValidator(config)
				if err != nil {
					return err
				}
				name, err := v.ValidateIdentity(f.name)
				if err != nil {
					return fmt.Errorf("%w: %w", errors.ErrInvalidIdentity, err)
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				roomID, err := roomapi.NewRoomClient(config.APIURL, nil).CreateRoom(ctx, name)
				if err != nil {
					return err
				}
				return chat(cmd.Context(), f, string(roomID))
			},
		},
		&cobra.Command{
			Use:   "info ROOM",
			Short: "Show a room's status and member count",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				config, err := loadConfig(f)
				if err != nil {
					return err
				}
				info, err := roomapi.NewRoomClient(config.APIURL, nil).GetRoomInfo(cmd.Context(), domain.RoomID(args[0]))
				if err != nil {
					return err
				}
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Room", "Status", "Members"})
				table.SetBorder(false)
				table.Append([]string{string(info.RoomID), info.Status, strconv.Itoa(info.MemberCount)})
				table.Render()
				return nil
			},
		},
	)
	return root
}

func loadConfig(f *flags) (internal.Config, error) {
	config, err := internal.Load(f.envFile)
	if err != nil {
		return internal.Config{}, err
	}
	if f.server != "" {
		config.ServerURL = f.server
	}
	if f.api != "" {
		config.APIURL = f.api
	}
	return config, config.Validate()
}

func chat(parent context.Context, f *flags, room string) error {
	config, err := loadConfig(f)
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(log, config, room, f.name, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
