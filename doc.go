/*
Package roomservice is the ordering engine behind a hotel's in-room dining line.

A guest call is a session that walks a fixed conversation graph: the guest is
identified by room number, browses the menu, builds an order and confirms it.
Every turn is one action (validate_room, add_to_order, place_order...) and the
engine only accepts the actions offered by the current node, so a driver can
never skip a step or place an unconfirmed order.

The engine owns the dialogue state; the caller (a voice gateway, a chat UI or
an LLM agent) owns the I/O. It talks to three hotel services, a menu catalog,
the guest registry and the order desk, through the interfaces in pkg/ports.

# Usage

	svc, err := roomservice.New(catalog, guests, orders,
		roomservice.WithLogger(logger),
		roomservice.WithMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		log.Fatal(err)
	}

	id, out, err := svc.Start(ctx)
	// say out.Prompt, listen, pick an action from svc.Registry().ActionsFor(out.Node)
	out, err = svc.Act(ctx, id, "validate_room", map[string]any{"room_number": "101"})

Act returns a *domain.StateError when the action is not offered at the
current node; the session is left untouched. When out.Terminal is true the
session has ended and its state is discarded.

The HTTP, MCP and terminal drivers live in pkg/adapters/http,
pkg/adapters/mcp and internal/cli; cmd/roomservice wires them to the
configuration.
*/
package roomservice
