package order

import "github.com/aretw0/roomservice/pkg/domain"

// Snapshot is the serializable form of an Aggregate.
type Snapshot = domain.OrderSnapshot

// Snapshot captures the current state.
func (a *Aggregate) Snapshot() Snapshot {
	return Snapshot{
		GuestID:         a.guestID,
		GuestName:       a.guestName,
		RoomNumber:      a.roomNumber,
		Lines:           a.Lines(),
		SpecialRequests: a.specialRequests,
		DeliveryNotes:   a.deliveryNotes,
		RunningTotal:    a.total,
	}
}

// Restore replaces the state with s. The running total is recomputed from the
// lines rather than trusted.
func (a *Aggregate) Restore(s Snapshot) {
	limit := a.maxLines
	*a = Aggregate{
		guestID:         s.GuestID,
		guestName:       s.GuestName,
		roomNumber:      s.RoomNumber,
		specialRequests: s.SpecialRequests,
		deliveryNotes:   s.DeliveryNotes,
		maxLines:        limit,
	}
	for _, l := range s.Lines {
		if l.Quantity < 1 {
			continue
		}
		l.TotalPrice = l.UnitPrice.Times(l.Quantity)
		a.lines = append(a.lines, l)
		a.total += l.TotalPrice
	}
}
