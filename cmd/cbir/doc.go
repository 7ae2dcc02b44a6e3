// Command cbir is a terminal client for a content-based image retrieval
// service. It searches the indexed collection, uploads new images, records
// relevance votes and free-text annotations, and watches for background
// processing errors.
//
// Configuration is read from ~/.config/cbir/config.toml (or ./cbir.toml, or
// --config). A .env file in the working directory is loaded first so
// CBIR_BASE_URL and CBIR_PASSWORD can be kept out of shell history.
package main
