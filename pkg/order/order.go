// Package order holds the per-session order aggregate.
//
// An Aggregate is owned by exactly one session and is mutated only from that
// session's turns, so it carries no locking of its own.
package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/roomservice/pkg/domain"
)

// EmptySummary is returned by Summary when the order has no lines.
const EmptySummary = "No items in the order yet."

// DefaultMaxLines caps the number of lines in one order.
const DefaultMaxLines = 20

var (
	ErrItemUnavailable = errors.New("menu item is not available")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrTooManyLines    = errors.New("order has reached the maximum number of items")
)

var negatives = map[string]bool{"no": true, "none": true, "nothing": true}

// Line is one item of the order.
type Line = domain.OrderLine

// Aggregate accumulates the lines, notes and running total of one order.
// RunningTotal always equals the sum of the lines' totals.
type Aggregate struct {
	guestID         string
	guestName       string
	roomNumber      string
	lines           []Line
	specialRequests string
	deliveryNotes   string
	total           domain.Money
	maxLines        int
}

// Option configures an Aggregate.
type Option func(*Aggregate)

// WithMaxLines overrides the line limit. Zero or negative disables it.
func WithMaxLines(n int) Option {
	return func(a *Aggregate) {
		a.maxLines = n
	}
}

// New creates an empty aggregate.
func New(opts ...Option) *Aggregate {
	a := &Aggregate{maxLines: DefaultMaxLines}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetGuest binds the order to a guest. Switching to a different guest
// discards whatever was ordered for the previous one.
func (a *Aggregate) SetGuest(g domain.Guest, room string) {
	if a.guestID != "" && a.guestID != g.ID {
		a.Reset()
	}
	a.guestID = g.ID
	a.guestName = g.Name
	a.roomNumber = room
}

// AddItem appends a line for item. The item must be available and qty at least 1.
func (a *Aggregate) AddItem(item domain.MenuItem, qty int, notes string) (Line, error) {
	if !item.Available {
		return Line{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}
	if qty < 1 {
		return Line{}, ErrInvalidQuantity
	}
	if a.maxLines > 0 && len(a.lines) >= a.maxLines {
		return Line{}, ErrTooManyLines
	}

	line := Line{
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   qty,
		UnitPrice:  item.Price,
		TotalPrice: item.Price.Times(qty),
		Notes:      cleanNote(notes),
	}
	a.lines = append(a.lines, line)
	a.total += line.TotalPrice
	return line, nil
}

// RemoveItem removes the first line whose name matches case-insensitively.
// It reports false and leaves the order untouched when nothing matches.
func (a *Aggregate) RemoveItem(name string) (Line, bool) {
	name = strings.TrimSpace(name)
	for i, l := range a.lines {
		if strings.EqualFold(l.Name, name) {
			a.lines = append(a.lines[:i:i], a.lines[i+1:]...)
			a.total -= l.TotalPrice
			return l, true
		}
	}
	return Line{}, false
}

// SetSpecialRequests overwrites the special requests unless text is a
// negative phrase such as "no" or "none".
func (a *Aggregate) SetSpecialRequests(text string) {
	if v, ok := meaningful(text); ok {
		a.specialRequests = v
	}
}

// SetDeliveryNotes follows the same rule as SetSpecialRequests.
func (a *Aggregate) SetDeliveryNotes(text string) {
	if v, ok := meaningful(text); ok {
		a.deliveryNotes = v
	}
}

// Reset clears the order for reuse.
func (a *Aggregate) Reset() {
	limit := a.maxLines
	*a = Aggregate{maxLines: limit}
}

func (a *Aggregate) GuestID() string { return a.guestID }
func (a *Aggregate) GuestName() string { return a.guestName }
func (a *Aggregate) RoomNumber() string { return a.roomNumber }
func (a *Aggregate) SpecialRequests() string { return a.specialRequests }
func (a *Aggregate) DeliveryNotes() string { return a.deliveryNotes }
func (a *Aggregate) RunningTotal() domain.Money { return a.total }
func (a *Aggregate) Len() int { return len(a.lines) }
func (a *Aggregate) IsEmpty() bool { return len(a.lines) == 0 }

// Lines returns a copy of the order lines.
func (a *Aggregate) Lines() []Line {
	out := make([]Line, len(a.lines))
	copy(out, a.lines)
	return out
}

// Summary renders the order for read-back to the guest.
func (a *Aggregate) Summary() string {
	if len(a.lines) == 0 {
		return EmptySummary
	}

	var sb strings.Builder
	for _, l := range a.lines {
		fmt.Fprintf(&sb, "- %dx %s - %s", l.Quantity, l.Name, l.TotalPrice)
		if l.Notes != "" {
			fmt.Fprintf(&sb, " (Note: %s)", l.Notes)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Total: %s", a.total)
	if a.specialRequests != "" {
		fmt.Fprintf(&sb, "\nSpecial requests: %s", a.specialRequests)
	}
	if a.deliveryNotes != "" {
		fmt.Fprintf(&sb, "\nDelivery notes: %s", a.deliveryNotes)
	}
	return sb.String()
}

func meaningful(text string) (string, bool) {
	v := strings.TrimSpace(text)
	if v == "" || negatives[strings.ToLower(strings.Trim(v, ".! "))] {
		return "", false
	}
	return v, true
}

func cleanNote(notes string) string {
	v, _ := meaningful(notes)
	return v
}
