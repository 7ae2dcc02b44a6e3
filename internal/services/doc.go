// Package services defines shared utilities consumed by the controllers and
// the request gateway.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation identifiers, query
//     sequence numbers, and component names for logging.
//   - Structured error markers plus typed backend/transport errors so callers
//     can classify a failure with errors.Is instead of string matching.
//   - UserMessage and Kind helpers that turn an error into the text a shell
//     shows and the label the journal stores.
//
// Use these helpers when wiring new client flows so error reporting stays
// uniform across search, upload, feedback, and account operations.
package services
