package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/pkg/adapters/redis"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/persistence/middleware"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ROOMSERVICE_LOG_LEVEL", "error")
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores defaults since the command tree is package state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "roomservice version "+roomservice.Version)
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Graph is valid: 17 nodes, 10 actions")
}

func TestValidate_BadConfig(t *testing.T) {
	_, err := execute(t, "", "validate", "--config", "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "", "graph")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, domain.NodeGreeting+"((")
	assert.NotContains(t, out, "classDef")
}

func TestSession_RequiresRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	_, err := execute(t, "", "session", "ls")
	assert.ErrorContains(t, err, "redis.addr")
}

func TestSession_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", mr.Addr())

	store := redis.New(mr.Addr(), "", 0)
	defer store.Close()
	require.NoError(t, store.Save(context.Background(), "call-1", &domain.SessionState{
		ID:      "call-1",
		NodeID:  domain.NodeWelcomeGuest,
		History: []string{domain.NodeGreeting, domain.NodeRequestRoom},
		Values:  map[string]string{"guest_name": "Jane"},
	}))

	out, err := execute(t, "", "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "- call-1")

	out, err = execute(t, "", "session", "inspect", "call-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"guest_name": "Jane"`)

	out, err = execute(t, "", "graph", "--session", "call-1")
	require.NoError(t, err)
	assert.Contains(t, out, "class "+domain.NodeGreeting+" visited;")
	assert.Contains(t, out, "class "+domain.NodeWelcomeGuest+" current;")

	out, err = execute(t, "", "session", "rm", "call-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'call-1'")

	_, err = execute(t, "", "session", "inspect", "call-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChat_Demo(t *testing.T) {
	out, err := execute(t, "request_room_number\nvalidate_room 101\nquit\n", "chat", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Jane")
}

func TestChat_JSON(t *testing.T) {
	out, err := execute(t, `{"action":"request_room_number"}`+"\n", "chat", "--demo", "--json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"node":"`+domain.NodeRequestRoom+`"`)
}

func TestSession_Encrypted(t *testing.T) {
	mr := miniredis.RunT(t)
	key := bytes.Repeat([]byte{7}, 32)
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("ROOMSERVICE_SESSION_KEY", base64.StdEncoding.EncodeToString(key))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)
	raw := redis.New(mr.Addr(), "", 0)
	defer raw.Close()
	require.NoError(t, middleware.Chain(raw, mw).Save(context.Background(), "call-2", &domain.SessionState{
		ID:     "call-2",
		NodeID: domain.NodeWelcomeGuest,
		Values: map[string]string{"guest_name": "Jane"},
	}))

	stored, err := mr.Get("roomservice:session:call-2")
	require.NoError(t, err)
	assert.NotContains(t, stored, "Jane")

	out, err := execute(t, "", "session", "inspect", "call-2")
	require.NoError(t, err)
	assert.Contains(t, out, `"guest_name": "Jane"`)
}
