// Package indexer populates the media store from the media directory.
//
// Each run walks the tree with a pool of workers. Files whose size and
// modification time match the index are only marked as seen; new and
// changed files are classified into the images or videos collection and
// get a capture time from EXIF (images) or the container (videos). Files
// named with the .pending- prefix are indexed as pending. Rows not seen by
// a completed run are pruned.
//
// Runs are triggered at startup, on a fixed interval, on demand, and after
// fsnotify events have been quiet for the debounce window. Only one run
// executes at a time.
package indexer
