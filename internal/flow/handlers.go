package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/gateway"
	"github.com/aretw0/roomservice/pkg/order"
	"github.com/aretw0/roomservice/pkg/quantity"
	"github.com/aretw0/roomservice/pkg/session"
)

func (f *Flow) requestRoomNumber(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	return domain.PromptResult{Message: "May I have your room number, please?"}, domain.NodeRequestRoom, nil
}

func (f *Flow) validateRoom(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[validateRoomParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionValidateRoom, Err: err}
	}
	room := normalizeRoom(p.RoomNumber)
	s.SetValue(session.SlotRequested, room)
	if room == "" {
		return domain.ValidateRoomResult{
			Status:  domain.StatusInvalid,
			Message: "I didn't catch a room number.",
		}, domain.NodeInvalidRoom, nil
	}

	guest, err := f.guests.GuestByRoom(ctx, room)
	switch {
	case errors.Is(err, domain.ErrGuestNotFound):
		f.logger.Info("Room not found", "session_id", s.ID, "room", room)
		return domain.ValidateRoomResult{
			Status:     domain.StatusNotFound,
			RoomNumber: room,
			Message:    (&domain.NotFoundError{Kind: "room", Input: room}).Error(),
		}, domain.NodeInvalidRoom, nil
	case err != nil:
		f.logger.Warn("Guest lookup failed", "session_id", s.ID, "room", room, "err", err)
		return domain.ValidateRoomResult{
			Status:     domain.StatusFailed,
			RoomNumber: room,
			Message:    "I couldn't look up that room just now.",
		}, domain.NodeInvalidRoom, nil
	}

	s.Order().SetGuest(guest, room)
	s.SetValue(session.SlotGuestName, guest.Name)
	s.SetValue(session.SlotRoomNumber, room)
	return domain.ValidateRoomResult{
		Status:     domain.StatusOK,
		RoomNumber: room,
		GuestName:  guest.Name,
	}, domain.NodeWelcomeGuest, nil
}

func (f *Flow) showCategories(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	cats := f.catalog.Categories(ctx, false)
	if len(cats) == 0 {
		// An earlier outage leaves an empty snapshot behind.
		cats = f.catalog.Categories(ctx, true)
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	status := domain.StatusOK
	if len(names) == 0 {
		status = domain.StatusEmpty
	}
	return domain.ShowCategoriesResult{Status: status, Categories: names}, domain.NodeCategorySelection, nil
}

func (f *Flow) selectCategory(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[selectCategoryParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionSelectCategory, Err: err}
	}
	requested := strings.TrimSpace(p.Category)
	s.SetValue(session.SlotRequested, requested)

	cat, ok := f.resolver.ResolveCategory(requested, f.catalog.Categories(ctx, false))
	if !ok {
		return domain.SelectCategoryResult{
			Status:    domain.StatusNotFound,
			Requested: requested,
		}, domain.NodeCategoryNotFound, nil
	}

	s.SetValue(session.SlotCategory, cat.Name)
	items := f.catalog.ItemsByCategory(ctx, cat.ID)
	views := make([]domain.ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, domain.ItemView{Name: it.Name, Description: it.Description, Price: it.Price})
	}
	status := domain.StatusOK
	if len(views) == 0 {
		status = domain.StatusEmpty
	}
	return domain.SelectCategoryResult{
		Status:    status,
		Requested: requested,
		Category:  cat.Name,
		Items:     views,
	}, domain.NodeShowItems, nil
}

func (f *Flow) addToOrder(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[addToOrderParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionAddToOrder, Err: err}
	}
	requested := strings.TrimSpace(p.ItemName)
	s.SetValue(session.SlotRequested, requested)
	agg := s.Order()

	item, ok := f.resolver.Resolve(requested, f.catalog.Items(ctx, false))
	if !ok {
		return domain.AddToOrderResult{
			Status:     domain.StatusNotFound,
			Requested:  requested,
			OrderTotal: agg.RunningTotal(),
			Message:    (&domain.NotFoundError{Kind: "menu item", Input: requested}).Error(),
		}, domain.NodeItemNotFound, nil
	}

	qty := 1
	if p.Quantity != nil {
		qty = quantity.Parse(p.Quantity)
	}
	line, err := agg.AddItem(item, qty, p.Notes)
	if err != nil {
		if !errors.Is(err, order.ErrItemUnavailable) && !errors.Is(err, order.ErrTooManyLines) && !errors.Is(err, order.ErrInvalidQuantity) {
			return nil, "", err
		}
		return domain.AddToOrderResult{
			Status:     domain.StatusInvalid,
			Requested:  requested,
			ItemName:   item.Name,
			OrderTotal: agg.RunningTotal(),
			Message:    err.Error(),
		}, domain.NodeItemNotFound, nil
	}

	s.SetValue(session.SlotItemName, line.Name)
	s.SetValue(session.SlotQuantity, strconv.Itoa(line.Quantity))
	return domain.AddToOrderResult{
		Status:     domain.StatusOK,
		Requested:  requested,
		ItemName:   line.Name,
		Quantity:   line.Quantity,
		Price:      line.TotalPrice,
		OrderTotal: agg.RunningTotal(),
	}, domain.NodeItemAdded, nil
}

func (f *Flow) removeFromOrder(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[removeFromOrderParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionRemoveFromOrder, Err: err}
	}
	requested := strings.TrimSpace(p.ItemName)
	s.SetValue(session.SlotRequested, requested)
	agg := s.Order()

	line, ok := agg.RemoveItem(requested)
	if !ok {
		// Fall back to the resolver so "burger" removes "Classic Beef Burger".
		if item, found := f.resolver.Resolve(requested, lineItems(agg.Lines())); found {
			line, ok = agg.RemoveItem(item.Name)
		}
	}
	if !ok {
		s.SetValue(session.SlotSummary, agg.Summary())
		return domain.RemoveFromOrderResult{
			Status:     domain.StatusNotFound,
			Requested:  requested,
			OrderTotal: agg.RunningTotal(),
			Message:    (&domain.NotFoundError{Kind: "order line", Input: requested}).Error(),
		}, domain.NodeItemNotInOrder, nil
	}

	s.SetValue(session.SlotItemName, line.Name)
	s.SetValue(session.SlotSummary, agg.Summary())
	return domain.RemoveFromOrderResult{
		Status:     domain.StatusOK,
		Requested:  requested,
		ItemName:   line.Name,
		OrderTotal: agg.RunningTotal(),
	}, domain.NodeItemRemoved, nil
}

func (f *Flow) continueOrdering(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[continueOrderingParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionContinueOrdering, Err: err}
	}
	more := WantsMore(p.Response)
	next := domain.NodeRequestSpecial
	if more {
		next = domain.NodeCategorySelection
	}
	return domain.ContinueOrderingResult{
		Status:     domain.StatusOK,
		Continue:   more,
		OrderTotal: s.Order().RunningTotal(),
	}, next, nil
}

func (f *Flow) setSpecialRequests(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[specialRequestsParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionSetSpecialRequests, Err: err}
	}
	agg := s.Order()
	agg.SetSpecialRequests(p.SpecialRequests)
	agg.SetDeliveryNotes(p.DeliveryNotes)

	summary := agg.Summary()
	s.SetValue(session.SlotSummary, summary)
	return domain.SpecialRequestsResult{
		Status:          domain.StatusOK,
		SpecialRequests: agg.SpecialRequests(),
		DeliveryNotes:   agg.DeliveryNotes(),
		Summary:         summary,
	}, domain.NodeConfirmOrder, nil
}

func (f *Flow) placeOrder(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	p, err := decode[placeOrderParams](params)
	if err != nil {
		return nil, "", &domain.ValidationError{Action: domain.ActionPlaceOrder, Err: err}
	}
	agg := s.Order()

	switch Confirmation(p.Confirmation) {
	case Declined:
		// The order is kept so the guest can pick it up again after re-validating.
		f.logger.Info("Order declined", "session_id", s.ID, "room", agg.RoomNumber())
		return domain.PlaceOrderResult{
			Status:  domain.StatusDeclined,
			Total:   agg.RunningTotal(),
			Message: "The order was not placed.",
		}, domain.NodeGreeting, nil
	case Unclear:
		return domain.PlaceOrderResult{
			Status:  domain.StatusInvalid,
			Total:   agg.RunningTotal(),
			Message: "Please answer yes to place the order or no to cancel.",
		}, s.NodeID(), nil
	}

	placed, err := f.submitter.Submit(ctx, agg.Snapshot())
	if err != nil {
		return f.submissionFailed(s, err)
	}

	ref := gateway.Reference(placed.ID)
	s.SetValue(session.SlotOrderID, ref)
	s.SetValue(session.SlotEstimatedTime, gateway.EstimatedDelivery)
	f.announce(ctx, s, placed)

	return domain.PlaceOrderResult{
		Status:        domain.StatusOK,
		OrderID:       placed.ID,
		Reference:     ref,
		Total:         placed.TotalAmount,
		EstimatedTime: gateway.EstimatedDelivery,
		Message: fmt.Sprintf("Your order #%s has been placed. Total: %s. Estimated delivery: %s.",
			ref, placed.TotalAmount, gateway.EstimatedDelivery),
	}, domain.NodeOrderComplete, nil
}

func (f *Flow) submissionFailed(s *session.Session, err error) (domain.Result, string, error) {
	var serr *domain.SubmissionError
	if !errors.As(err, &serr) {
		return nil, "", err
	}
	total := s.Order().RunningTotal()
	switch serr.Kind {
	case domain.SubmissionEmptyOrder:
		return domain.PlaceOrderResult{Status: domain.StatusEmpty, Total: total, Message: serr.Message}, domain.NodeEmptyOrder, nil
	case domain.SubmissionMissingGuest:
		return domain.PlaceOrderResult{Status: domain.StatusInvalid, Total: total, Message: serr.Message}, domain.NodeGreeting, nil
	}
	f.logger.Error("Order not placed", "session_id", s.ID, "room", s.Order().RoomNumber(), "kind", serr.Kind, "err", err)
	return domain.PlaceOrderResult{Status: domain.StatusFailed, Total: total, Message: serr.Message}, domain.NodeOrderFailed, nil
}

// announce notifies hooks and the event publisher. Publishing is best
// effort: the order is already placed.
func (f *Flow) announce(ctx context.Context, s *session.Session, placed domain.PlacedOrder) {
	agg := s.Order()
	evt := &domain.OrderEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventOrderPlaced, SessionID: s.ID},
		OrderID:    placed.ID,
		GuestID:    agg.GuestID(),
		RoomNumber: agg.RoomNumber(),
		Total:      placed.TotalAmount,
		Lines:      agg.Len(),
	}
	if f.hooks.OnOrderPlaced != nil {
		f.hooks.OnOrderPlaced(ctx, evt)
	}
	if f.publisher == nil {
		return
	}
	if err := f.publisher.PublishOrderPlaced(ctx, evt); err != nil {
		f.logger.Warn("Order event not published", "session_id", s.ID, "order_id", placed.ID, "err", err)
	}
}

func (f *Flow) endCall(ctx context.Context, params map[string]any, s *session.Session) (domain.Result, string, error) {
	return domain.EndCallResult{Message: "Thank you for calling room service. Enjoy your meal!"}, domain.NodeGoodbye, nil
}

// normalizeRoom strips filler around a spoken room number ("room 101." -> "101").
func normalizeRoom(raw string) string {
	room := strings.TrimSpace(raw)
	if len(room) >= 4 && strings.EqualFold(room[:4], "room") {
		room = room[4:]
	}
	room = strings.Trim(room, " #.,!?")
	return strings.ReplaceAll(room, " ", "")
}

func lineItems(lines []domain.OrderLine) []domain.MenuItem {
	out := make([]domain.MenuItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.MenuItem{ID: l.MenuItemID, Name: l.Name})
	}
	return out
}
