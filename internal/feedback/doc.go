// Package feedback tracks per-result vote and note state and submits it.
//
// State is keyed by filename and reset by Load whenever a new result set is
// rendered. Votes are applied locally before the request is sent and revert
// when the request fails, unless a newer vote for the same filename was
// issued in the meantime. Two rapid votes on one filename may complete out of
// order; the local state converges on the last vote issued. Notes are local
// drafts that a successful annotation consumes.
package feedback
