// Package media wraps the image and video codecs used by the pipeline.
//
//   - Header-only dimension reads for images, with x/image decoders
//     registered for WebP, BMP and TIFF
//   - libvips (govips) for HEIC/HEIF decode and JPEG export
//   - ffmpeg for video frame extraction and as a fallback still-image
//     transcoder
//   - JPEG thumbnail encoding with imaging
package media
