// Package lineage builds the table-to-table lineage graph from pipeline
// provenance records and answers ancestor, descendant, and path queries
// across the ordered sequence of processing layers.
//
// The graph is constructed once by Build and is immutable afterwards:
// concurrent readers need no locking, and a rebuild produces a fresh
// handle that callers swap in wholesale.
package lineage
