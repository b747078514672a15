// Command mediactl is the operator CLI of the media picker.
//
// It reads the same environment (and .env file) as the service and works
// directly on the repository index and the cache directory, so it can be
// run next to a stopped or running service.
//
// Usage:
//
//	mediactl <command> [flags]
//
// Commands:
//
//	index              Run one indexing pass over MEDIA_DIR.
//	last               List recent media through the full pipeline and
//	                   print the records as JSON.
//	exif <uri> [key]   Print one EXIF value of a cached file, or every tag
//	                   when no key is given.
//	cache clear        Remove every cached file. Asks for confirmation
//	                   when stdin is a terminal; --yes skips the prompt and
//	                   is required otherwise.
package main
