// Package session holds the client's session slot: the opaque token issued by
// the backend at login, or nothing for an anonymous user.
//
// FileStore persists the slot as a small JSON document guarded by an advisory
// lock file so concurrent CLI invocations never interleave writes. MemoryStore
// backs tests and embedded shells. Both treat Set("") as Clear and apply no
// client-side expiry.
package session
