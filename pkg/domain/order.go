package domain

import "time"

// OrderLine is one item of an in-progress order.
type OrderLine struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  Money  `json:"unit_price"`
	TotalPrice Money  `json:"total_price"`
	Notes      string `json:"notes,omitempty"`
}

// OrderSnapshot is the serializable form of an in-progress order.
type OrderSnapshot struct {
	GuestID         string      `json:"guest_id,omitempty"`
	GuestName       string      `json:"guest_name,omitempty"`
	RoomNumber      string      `json:"room_number,omitempty"`
	Lines           []OrderLine `json:"lines,omitempty"`
	SpecialRequests string      `json:"special_requests,omitempty"`
	DeliveryNotes   string      `json:"delivery_notes,omitempty"`
	RunningTotal    Money       `json:"running_total"`
}

// OrderLineItem is a line as sent to the order service.
type OrderLineItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"special_notes,omitempty"`
}

// OrderRequest is the payload submitted to the order service.
type OrderRequest struct {
	GuestID         string          `json:"guest_id"`
	LineItems       []OrderLineItem `json:"order_items"`
	SpecialRequests string          `json:"special_requests,omitempty"`
	DeliveryNotes   string          `json:"delivery_notes,omitempty"`
}

// SessionState is the persisted view of a conversation.
// Values holds the slots used to fill node prompts (guest name, last item...).
type SessionState struct {
	ID        string            `json:"id"`
	NodeID    string            `json:"node_id"`
	History   []string          `json:"history,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
	Order     OrderSnapshot     `json:"order"`
	UpdatedAt time.Time         `json:"updated_at"`
}
