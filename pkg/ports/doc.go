// Package ports defines the boundaries of the room-service engine: the remote
// catalog, guest and order services it depends on, session persistence,
// distributed locking and event publication.
package ports
