// Package scrape defines the core types shared across the acquisition
// pipeline: extraction tuples, fetch queries, the tier taxonomy, the
// error taxonomy, and the fallback orchestrator that sequences the
// static and browser tiers.
package scrape
