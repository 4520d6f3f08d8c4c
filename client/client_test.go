package main

import (
	"bytes"
	"c2c-client/internal/chattest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_MissingRoomIsAConfigError(t *testing.T) {
	req := require.New(t)

	code, err := run([]string{"--name", "alice", "--env-file", t.TempDir() + "/none.env"})

	req.Error(err)
	req.Equal(exitConfig, code)
}

func TestRun_InvalidNameIsAConfigError(t *testing.T) {
	req := require.New(t)

	code, err := run([]string{"create", "--name", "admin", "--env-file", t.TempDir() + "/none.env"})

	req.Error(err)
	req.Equal(exitConfig, code)
}

func TestInfoCommand(t *testing.T) {
	req := require.New(t)
	server := chattest.NewServer()
	defer server.Close()
	server.OpenRoom("room-1")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"info", "room-1", "--api", server.URL(), "--env-file", t.TempDir() + "/none.env"})

	req.NoError(root.Execute())
	req.Contains(out.String(), "room-1")
	req.Contains(out.String(), "ACTIVE")
}

func TestInfoCommand_UnknownRoom(t *testing.T) {
	req := require.New(t)
	server := chattest.NewServer()
	defer server.Close()

	code, err := run([]string{"info", "nowhere", "--api", server.URL(), "--env-file", t.TempDir() + "/none.env"})

	req.Error(err)
	req.Equal(exitRuntime, code)
}
