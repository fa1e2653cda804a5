package cli_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/cli"
	"github.com/aretw0/roomservice/pkg/domain"
)

func TestChat_PlacesOrder(t *testing.T) {
	svc, backend, err := roomservice.NewDemo()
	require.NoError(t, err)

	script := strings.Join([]string{
		"request_room_number",
		"validate_room room 101",
		"help",
		"select_category breakfast",
		"add_to_order pancakes quantity=2",
		"order",
		"continue_ordering no",
		"place_order yes",
		"set_special_requests delivery_notes=knock twice",
		"place_order yes please",
	}, "\n")
	var out bytes.Buffer

	err = cli.NewChat(svc, strings.NewReader(script), &out).Run(context.Background())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Jane")
	assert.Contains(t, text, "Added 2 x Pancakes. Running total $25.98.")
	assert.Contains(t, text, "2 x Pancakes  $25.98")
	assert.Contains(t, text, "place_order is not available here")
	assert.Contains(t, text, "placed, total $25.98")
	assert.EqualValues(t, 1, backend.OrderCalls.Load())
	assert.Zero(t, svc.LiveSessions(), "the session is hung up when input ends")
}

func TestChat_QuitHangsUp(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	var out bytes.Buffer

	err = cli.NewChat(svc, strings.NewReader("request_room_number\nbogus\nquit\n"), &out).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), `unknown action "bogus"`)
	assert.Zero(t, svc.LiveSessions())
}

func TestChat_JSONMode(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	script := `{"action":"request_room_number"}
{"action":"validate_room","params":{"room_number":"102"}}
`
	var out bytes.Buffer

	err = cli.NewChat(svc, strings.NewReader(script), &out, cli.WithJSON(true)).Run(context.Background())
	require.NoError(t, err)

	var turns []map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var turn map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &turn))
		turns = append(turns, turn)
	}
	require.Len(t, turns, 3)
	assert.Equal(t, domain.NodeGreeting, turns[0]["node"])
	assert.Equal(t, domain.NodeWelcomeGuest, turns[2]["node"])
	assert.Contains(t, turns[2]["prompt"], "John")
}

func TestChat_StopsOnCancel(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	err = cli.NewChat(svc, pr, &bytes.Buffer{}).Run(ctx)
	assert.Error(t, err)
}
