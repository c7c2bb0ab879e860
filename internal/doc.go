// Package internal contains the implementation packages of toolshed.
//
// These packages cannot be imported by other modules. The cmd package
// wires them into the toolshed CLI.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - generator: seeded test data (card numbers, dates, lorem, plates, numbers)
//   - textstats: word, sentence and reading time statistics
//   - calc: the health, finance and conversion calculators
//   - outline: blog post scaffolds rendered as Markdown
//   - tools: the catalog and a single entry point for running any tool
//   - cachetier: versioned, capped response buckets and the fetch strategies
//   - prefs: per-client history, favorites and bookmarks in SQLite
//   - server: pages, JSON API, websocket and the middleware stack
//   - middleware: ordered composition of HTTP middleware
//   - watcher: debounced asset watching that invalidates cached copies
//   - config, logging, errors, validation, version: ambient support
//
// # Request Flow
//
// A request passes through the middleware chain, then the tiered cache,
// which either answers from a bucket or fetches from the chi router (or an
// upstream origin in proxy mode). Per-client responses carry no-store and
// are never cached.
//
// # Testing Strategy
//
//   - Unit tests with testify for every package
//   - Property tests with gopter behind the property build tag
//   - httptest round trips for the server and the cache
//   - goleak checks for the watcher goroutines
package internal
