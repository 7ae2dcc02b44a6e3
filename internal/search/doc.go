// Package search owns the "current query" lifecycle.
//
// Every Search or ListAll call takes the next sequence number and becomes the
// active query at once; a response is applied to the view only while its
// query is still active. Responses for superseded queries are dropped and
// surface to the caller as services.ErrStaleResponse, never to the sink.
// Requests are not aborted at the transport level when superseded.
package search
