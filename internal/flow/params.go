package flow

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/schema"
)

type validateRoomParams struct {
	RoomNumber string `mapstructure:"room_number"`
}

type selectCategoryParams struct {
	Category string `mapstructure:"category"`
}

type addToOrderParams struct {
	ItemName string `mapstructure:"item_name"`
	Quantity any    `mapstructure:"quantity"`
	Notes    string `mapstructure:"notes"`
}

type removeFromOrderParams struct {
	ItemName string `mapstructure:"item_name"`
}

type continueOrderingParams struct {
	Response string `mapstructure:"response"`
}

type specialRequestsParams struct {
	SpecialRequests string `mapstructure:"special_requests"`
	DeliveryNotes   string `mapstructure:"delivery_notes"`
}

type placeOrderParams struct {
	Confirmation string `mapstructure:"confirmation"`
}

// paramSchemas are the parameter schemas the driver coerces extracted
// entities against before calling an action.
var paramSchemas = map[string]schema.Schema{
	domain.ActionValidateRoom: {
		"room_number": schema.Required(schema.Scalar(), "Room number as spoken by the guest"),
	},
	domain.ActionSelectCategory: {
		"category": schema.Required(schema.String(), "Menu category name as spoken"),
	},
	domain.ActionAddToOrder: {
		"item_name": schema.Required(schema.String(), "Menu item name as spoken"),
		"quantity":  schema.Optional(schema.Scalar(), "How many, as a number or words like \"two\" (default 1)"),
		"notes":     schema.Optional(schema.String(), "Preparation notes for this item"),
	},
	domain.ActionRemoveFromOrder: {
		"item_name": schema.Required(schema.String(), "Name of the item to remove"),
	},
	domain.ActionContinueOrdering: {
		"response": schema.Required(schema.String(), "Guest's answer to \"anything else?\""),
	},
	domain.ActionSetSpecialRequests: {
		"special_requests": schema.Optional(schema.String(), "Requests for the kitchen, or \"none\""),
		"delivery_notes":   schema.Optional(schema.String(), "Notes for the delivery, or \"none\""),
	},
	domain.ActionPlaceOrder: {
		"confirmation": schema.Required(schema.String(), "Guest's yes or no to the order read-back"),
	},
}

// decode converts validated parameters into a typed struct. Numbers given
// for string fields, such as a room number, are converted.
func decode[T any](params map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(params); err != nil {
		return out, fmt.Errorf("decode parameters: %w", err)
	}
	return out, nil
}
