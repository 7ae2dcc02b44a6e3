// Package poller runs the background loop that fetches asynchronous
// processing errors from the backend and forwards each one to the
// notification sink.
//
// The loop is Idle between ticks and Polling while a fetch is in flight.
// Stop is terminal: it cancels the pending tick and any in-flight fetch,
// waits for the loop to exit, and no sink call happens after it returns.
// Fetch failures are logged and dropped; the next tick tries again.
package poller
