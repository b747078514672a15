// Package logging provides the leveled, printf-style logging used across the
// media picker service.
//
// Messages are written through zerolog. The level comes from LOG_LEVEL
// (debug, info, warn, error) or DEBUG=true, and LOG_FORMAT selects between
// human readable console lines (default) and JSON.
package logging
