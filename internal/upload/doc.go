// Package upload submits image batches to the backend.
//
// A batch is validated locally (non-empty, session present when uploads are
// gated) and then sent as exactly one multipart request. There is no retry
// queue: every outcome, accepted or rejected, is reported to the sink once
// and the batch is dropped.
package upload
