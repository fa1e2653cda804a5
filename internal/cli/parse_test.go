package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/internal/cli"
	"github.com/aretw0/roomservice/pkg/domain"
)

func TestParseCommand(t *testing.T) {
	svc, _, err := roomservice.NewDemo()
	require.NoError(t, err)
	reg := svc.Registry()
	offered := reg.ActionsFor(domain.NodeWelcomeGuest)

	tests := []struct {
		line   string
		action string
		params map[string]any
		err    bool
	}{
		{line: "validate_room 101", action: "validate_room", params: map[string]any{"room_number": "101"}},
		{line: "2 main courses", action: "select_category", params: map[string]any{"category": "main courses"}},
		{line: "1", action: "show_categories", params: map[string]any{}},
		{
			line:   "add_to_order item_name=eggs benedict quantity=two notes=no salt",
			action: "add_to_order",
			params: map[string]any{"item_name": "eggs benedict", "quantity": "two", "notes": "no salt"},
		},
		{
			line:   "add_to_order coffee quantity=3",
			action: "add_to_order",
			params: map[string]any{"item_name": "coffee", "quantity": "3"},
		},
		{line: "set_special_requests special_requests=extra napkins", action: "set_special_requests", params: map[string]any{"special_requests": "extra napkins"}},
		{line: "set_special_requests extra napkins", err: true},
		{line: "add_to_order coffee item_name=tea", err: true},
		{line: "9", err: true},
		{line: "fly_to_moon", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			action, params, err := cli.ParseCommand(tt.line, reg, offered)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.params, params)
		})
	}

	_, _, err = cli.ParseCommand("   ", reg, offered)
	assert.ErrorIs(t, err, cli.ErrEmptyCommand)
}
