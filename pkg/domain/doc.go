// Package domain holds the core types of the room-service dialogue: nodes and
// their actions, the menu catalog, guests, placed orders, the typed results each
// action returns and the error taxonomy shared by every layer.
//
// It has no dependencies on adapters or transports.
package domain
