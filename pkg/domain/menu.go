package domain

// Category groups menu items.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"is_active"`
}

// MenuItem is an orderable catalog entry.
type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       Money  `json:"price"`
	CategoryID  string `json:"category_id"`
	Available   bool   `json:"is_available"`
}

// Guest is the registered occupant of a room.
type Guest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RoomNumber string `json:"room_number"`
}

// PlacedOrder is what the order service returns on success.
type PlacedOrder struct {
	ID          string `json:"id"`
	TotalAmount Money  `json:"total_amount"`
	Status      string `json:"status"`
}
