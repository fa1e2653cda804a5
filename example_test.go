package roomservice_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/roomservice"
	"github.com/aretw0/roomservice/pkg/domain"
)

// ExampleNewDemo walks a guest from the greeting to the menu against the
// seeded demo hotel.
func ExampleNewDemo() {
	svc, _, err := roomservice.NewDemo()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	id, out, err := svc.Start(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Node)

	if _, err := svc.Act(ctx, id, domain.ActionRequestRoomNumber, nil); err != nil {
		log.Fatal(err)
	}
	out, err = svc.Act(ctx, id, domain.ActionValidateRoom, map[string]any{"room_number": "101"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Node)
	for _, a := range svc.Registry().ActionsFor(out.Node) {
		fmt.Println("-", a.Name)
	}
	// Output:
	// greeting
	// welcome_guest
	// - show_categories
	// - select_category
}
