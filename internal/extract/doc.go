// Package extract derives record metadata from cached items.
//
// Images get width and height from a header-only decode, with libvips as
// the fallback for formats the standard decoders cannot read. Videos get
// duration, width and height from the container through ffprobe, and a
// thumbnail from the first ThumbnailTier that succeeds. Thumbnails are
// cached as thumb_{hash}.jpg and never regenerated while present.
//
// Nothing in this package fails an item: a field that cannot be
// determined is simply left nil.
package extract
