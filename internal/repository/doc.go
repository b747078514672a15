// Package repository defines the contract of the external media repository:
// an indexed store of user media queried by collection and recency.
//
// The pipeline only depends on these interfaces. The sqlite-backed
// implementation lives in package mediastore.
package repository
