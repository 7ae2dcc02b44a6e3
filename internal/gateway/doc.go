// Package gateway is the typed HTTP client for the retrieval backend.
//
// Client exposes one method per backend operation (search, list-all, upload,
// vote, annotate, login, signup, poll-errors), bounds every call with the
// configured request timeout, tags each request with an X-Request-ID, and
// maps failures onto the services error taxonomy: non-2xx answers become
// *services.BackendError carrying the server's `error` text, while
// unreachable hosts and deadline expiry become *services.TransportError.
//
// The gateway performs no retries and keeps no state beyond its
// configuration; sequencing and reconciliation belong to the controllers.
package gateway
