package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"item_name": Required(String(), "item"),
		"quantity":  Optional(Scalar(), "how many"),
		"notes":     Optional(String(), "notes"),
	}

	assert.NoError(t, Validate(s, map[string]any{"item_name": "Pancakes", "quantity": "two"}))
	assert.NoError(t, Validate(s, map[string]any{"item_name": "Pancakes", "quantity": 2.0}))
	assert.NoError(t, Validate(s, map[string]any{"item_name": "Pancakes", "notes": nil}))
}

func TestValidate_MissingRequired(t *testing.T) {
	s := Schema{
		"room_number": Required(String(), "room"),
		"notes":       Optional(String(), "notes"),
	}

	err := Validate(s, map[string]any{})
	require.Error(t, err)

	errs := FieldErrors(err)
	require.Len(t, errs, 1)
	fe, ok := errs[0].(*FieldError)
	require.True(t, ok)
	assert.Equal(t, "room_number", fe.Key)
	assert.Equal(t, "required", fe.Reason)
}

func TestValidate_TypeMismatch(t *testing.T) {
	s := Schema{
		"room_number": Required(String(), "room"),
		"confirm":     Required(Bool(), "confirm"),
	}

	err := Validate(s, map[string]any{"room_number": 101, "confirm": "yes"})
	require.Error(t, err)
	assert.Len(t, FieldErrors(err), 2)
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestIntType_AcceptsWholeFloats(t *testing.T) {
	assert.NoError(t, Int().Validate(3.0))
	assert.Error(t, Int().Validate(3.5))
	assert.Error(t, Int().Validate("3"))
}

func TestSchema_JSONRoundTrip(t *testing.T) {
	s := Schema{
		"item_name": Required(String(), "Name of the menu item"),
		"tags":      Optional(Slice(String()), "tags"),
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"item_name": {"type": "string", "required": true, "description": "Name of the menu item"},
		"tags": {"type": "[string]", "description": "tags"}
	}`, string(data))

	var back Schema
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back["item_name"].Required)
	assert.Equal(t, "[string]", back["tags"].Type.Name())
}
