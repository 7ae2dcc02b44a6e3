// Package journal keeps a local SQLite record of client activity: queries,
// list-all requests, uploads, votes, and annotations together with their
// outcome.
//
// The store applies embedded migrations on open and is safe for concurrent
// use. Controllers write through the Recorder interface; Logged wraps a
// Recorder so journal failures are logged and never alter an operation's
// result. `cbir history` reads entries back with Recent.
package journal
