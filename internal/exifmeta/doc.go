// Package exifmeta reads and writes embedded EXIF metadata of cached media
// files.
//
// Reading is done with goexif over JPEG, TIFF and HEIC/HEIF containers.
// Writing is limited to the orientation tag, which is all the HEIC to JPEG
// conversion needs to carry over.
package exifmeta
