package domain

// Result is the typed outcome of an action. Kind discriminates the concrete
// type across the driver boundary.
type Result interface {
	Kind() string
}

// Status values shared by results.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusInvalid  = "invalid"
	StatusFailed   = "failed"
	StatusDeclined = "declined"
	StatusEmpty    = "empty"
)

// PromptResult acknowledges an action that only moves the conversation along.
type PromptResult struct {
	Message string `json:"message"`
}

func (PromptResult) Kind() string { return "prompt" }

type ValidateRoomResult struct {
	Status     string `json:"status"`
	RoomNumber string `json:"room_number"`
	GuestName  string `json:"guest_name,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (ValidateRoomResult) Kind() string { return ActionValidateRoom }

type ShowCategoriesResult struct {
	Status     string   `json:"status"`
	Categories []string `json:"categories"`
}

func (ShowCategoriesResult) Kind() string { return ActionShowCategories }

// ItemView is a menu item as presented to the guest.
type ItemView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       Money  `json:"price"`
}

type SelectCategoryResult struct {
	Status    string     `json:"status"`
	Requested string     `json:"requested"`
	Category  string     `json:"category,omitempty"`
	Items     []ItemView `json:"items,omitempty"`
}

func (SelectCategoryResult) Kind() string { return ActionSelectCategory }

type AddToOrderResult struct {
	Status     string `json:"status"`
	Requested  string `json:"requested"`
	ItemName   string `json:"item_name,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Price      Money  `json:"price,omitempty"`
	OrderTotal Money  `json:"order_total"`
	Message    string `json:"message,omitempty"`
}

func (AddToOrderResult) Kind() string { return ActionAddToOrder }

type RemoveFromOrderResult struct {
	Status     string `json:"status"`
	Requested  string `json:"requested"`
	ItemName   string `json:"item_name,omitempty"`
	OrderTotal Money  `json:"order_total"`
	Message    string `json:"message,omitempty"`
}

func (RemoveFromOrderResult) Kind() string { return ActionRemoveFromOrder }

type ContinueOrderingResult struct {
	Status     string `json:"status"`
	Continue   bool   `json:"continue"`
	OrderTotal Money  `json:"order_total"`
}

func (ContinueOrderingResult) Kind() string { return ActionContinueOrdering }

type SpecialRequestsResult struct {
	Status          string `json:"status"`
	SpecialRequests string `json:"special_requests,omitempty"`
	DeliveryNotes   string `json:"delivery_notes,omitempty"`
	Summary         string `json:"summary"`
}

func (SpecialRequestsResult) Kind() string { return ActionSetSpecialRequests }

type PlaceOrderResult struct {
	Status        string `json:"status"`
	OrderID       string `json:"order_id,omitempty"`
	Reference     string `json:"reference,omitempty"`
	Total         Money  `json:"total"`
	EstimatedTime string `json:"estimated_time,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (PlaceOrderResult) Kind() string { return ActionPlaceOrder }

type EndCallResult struct {
	Message string `json:"message"`
}

func (EndCallResult) Kind() string { return ActionEndCall }

// ErrorResult is returned when a handler fault was routed to a fallback node.
type ErrorResult struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

func (ErrorResult) Kind() string { return "error" }

// Outcome returns the status carried by a result, "error" for an
// ErrorResult and StatusOK for results without a status.
func Outcome(r Result) string {
	switch v := r.(type) {
	case ValidateRoomResult:
		return v.Status
	case ShowCategoriesResult:
		return v.Status
	case SelectCategoryResult:
		return v.Status
	case AddToOrderResult:
		return v.Status
	case RemoveFromOrderResult:
		return v.Status
	case ContinueOrderingResult:
		return v.Status
	case SpecialRequestsResult:
		return v.Status
	case PlaceOrderResult:
		return v.Status
	case ErrorResult:
		return "error"
	}
	return StatusOK
}
