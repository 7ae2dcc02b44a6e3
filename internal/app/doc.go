// Package app wires configuration, logging, the session store, the backend
// gateway, notification sinks, the activity journal, and every controller
// into one facade. Shells (the CLI today) build an App and call into its
// controllers; Close releases the poller and the journal.
package app
