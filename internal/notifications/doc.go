// Package notifications delivers user-facing events to pluggable sinks.
//
// Controllers depend only on the Sink interface. The console sink prints
// colourised lines for interactive shells; the ntfy sink publishes to the
// topic configured in config.toml and suppresses repeats inside the dedup
// window so a recurring processing error does not flood a phone. Multi fans
// out to several sinks and Noop discards everything.
//
// Sinks are called after the controller's state is settled and never while a
// controller lock is held, so implementations may block on I/O.
package notifications
