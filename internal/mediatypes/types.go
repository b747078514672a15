package mediatypes

import "strings"

// FileType is the classification reported in a media record.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents anything else.
	FileTypeOther FileType = "other"
)

// MediaType is the filter a caller applies to a selection or listing.
type MediaType string

const (
	// MediaImages restricts results to images.
	MediaImages MediaType = "images"
	// MediaVideos restricts results to videos.
	MediaVideos MediaType = "videos"
	// MediaAll accepts both images and videos.
	MediaAll MediaType = "all"
)

// ParseMediaType returns the MediaType named by s and whether it is known.
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaImages:
		return MediaImages, true
	case MediaVideos:
		return MediaVideos, true
	case MediaAll:
		return MediaAll, true
	}
	return "", false
}

// MimeFilters returns the MIME patterns a picker should offer for m.
func (m MediaType) MimeFilters() []string {
	switch m {
	case MediaImages:
		return []string{"image/*"}
	case MediaVideos:
		return []string{"video/*"}
	default:
		return []string{"image/*", "video/*"}
	}
}

// OctetStream is the generic binary MIME type.
const OctetStream = "application/octet-stream"

// MimeTypes maps lowercase extensions (with leading dot) to MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".dng":  "image/x-adobe-dng",

	// Videos
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".3g2":  "video/3gpp2",
	".ts":   "video/mp2t",
}

// NormalizeExt lowercases ext and ensures a leading dot. Empty stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// LookupMimeType returns the MIME type for ext (with or without the dot,
// any case) and whether the table knows it.
func LookupMimeType(ext string) (string, bool) {
	mime, ok := MimeTypes[NormalizeExt(ext)]
	return mime, ok
}

// GetMimeType returns the MIME type for ext, or OctetStream.
func GetMimeType(ext string) string {
	if mime, ok := LookupMimeType(ext); ok {
		return mime
	}
	return OctetStream
}

// FileTypeForMime classifies a MIME type by its top-level prefix.
func FileTypeForMime(mime string) FileType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mime, "video/"):
		return FileTypeVideo
	default:
		return FileTypeOther
	}
}

// GetFileType classifies an extension through the MIME table.
func GetFileType(ext string) FileType {
	mime, ok := LookupMimeType(ext)
	if !ok {
		return FileTypeOther
	}
	return FileTypeForMime(mime)
}

// IsMediaFile returns true if the extension is a known image or video.
func IsMediaFile(ext string) bool {
	return GetFileType(ext) != FileTypeOther
}

// IsHEIC reports whether a MIME type or extension denotes HEIC/HEIF content.
func IsHEIC(mime, ext string) bool {
	m := strings.ToLower(mime)
	if strings.Contains(m, "heic") || strings.Contains(m, "heif") {
		return true
	}
	e := strings.TrimPrefix(strings.ToLower(ext), ".")
	return e == "heic" || e == "heif"
}
