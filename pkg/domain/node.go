package domain

import "github.com/aretw0/roomservice/pkg/schema"

// Node IDs of the room-service conversation.
const (
	NodeGreeting          = "greeting"
	NodeRequestRoom       = "request_room"
	NodeInvalidRoom       = "invalid_room"
	NodeWelcomeGuest      = "welcome_guest"
	NodeCategorySelection = "category_selection"
	NodeCategoryNotFound  = "category_not_found"
	NodeShowItems         = "show_items"
	NodeItemNotFound      = "item_not_found"
	NodeItemAdded         = "item_added"
	NodeItemRemoved       = "item_removed"
	NodeItemNotInOrder    = "item_not_in_order"
	NodeRequestSpecial    = "request_special"
	NodeConfirmOrder      = "confirm_order"
	NodeEmptyOrder        = "empty_order"
	NodeOrderFailed       = "order_failed"
	NodeOrderComplete     = "order_complete"
	NodeGoodbye           = "goodbye"
)

// Action names exposed to the dialogue driver.
const (
	ActionRequestRoomNumber  = "request_room_number"
	ActionValidateRoom       = "validate_room"
	ActionShowCategories     = "show_categories"
	ActionSelectCategory     = "select_category"
	ActionAddToOrder         = "add_to_order"
	ActionRemoveFromOrder    = "remove_from_order"
	ActionContinueOrdering   = "continue_ordering"
	ActionSetSpecialRequests = "set_special_requests"
	ActionPlaceOrder         = "place_order"
	ActionEndCall            = "end_call"
)

// Node is a named state of the conversation.
// Prompt is the guidance the driver turns into the next utterance.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Prompt   string   `json:"prompt" yaml:"prompt"`
	Actions  []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	Terminal bool     `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// Allows reports whether the action is legal in this node.
func (n Node) Allows(action string) bool {
	for _, a := range n.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ActionSpec describes an action independently of its handler.
// Next lists every node the action may lead to. Fallback is where handler
// faults are routed and must be one of Next.
type ActionSpec struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Params      schema.Schema `json:"params,omitempty" yaml:"-"`
	Next        []string      `json:"next" yaml:"next"`
	Fallback    string        `json:"fallback" yaml:"fallback"`
}

// Leads reports whether nodeID is a declared successor.
func (a ActionSpec) Leads(nodeID string) bool {
	for _, n := range a.Next {
		if n == nodeID {
			return true
		}
	}
	return false
}
