// Package mediastore is the sqlite-backed external media repository.
//
// Items live in a single media table split into the "images" and "videos"
// collections and are addressed by content://media/external/{collection}/media/{id}
// references. date_taken is stored in milliseconds; date_added and
// date_modified in seconds, with 0 meaning unknown. Rows flagged is_pending
// are never returned by Scan.
//
// The index uses WAL mode and is written only by the indexer, in batches
// opened with BeginBatch and closed with EndBatch.
package mediastore
