// Package config loads, normalizes, and validates cbir client configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CBIR_BASE_URL. The Config type centralizes every knob the controllers, the
// error poller, and the CLI shell need, so the backend endpoint, session slot,
// and poll cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
