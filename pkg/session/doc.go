/*
Package session owns the lifetime of room-service conversations.

A Session bundles the current node, the order aggregate, the slot values used
to fill prompts and any external processes started for the call. The Registry
is the explicit set of live sessions, owned by the process supervisor and
drained from signal handlers. The Manager serializes turns per session with
reference-counted local locks and an optional distributed lock, and mirrors
each session into a ports.SessionStore so a driver can reconnect.
*/
package session
