package exifmeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
	markerEOI  = 0xD9

	tagOrientation = 0x0112
	typeShort      = 3
)

var errNotJPEG = errors.New("not a jpeg stream")

// CopyOrientation copies the orientation tag of src onto the JPEG at dst.
// It does nothing when src has no orientation or dst already matches.
func CopyOrientation(src, dst string) error {
	o, err := Orientation(src)
	if err != nil {
		return fmt.Errorf("read source orientation: %w", err)
	}
	if o == 0 {
		return nil
	}

	current, err := Orientation(dst)
	if err == nil && current == o {
		return nil
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return err
	}
	out, err := SetOrientation(data, o)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, out, 0o644)
}

// SetOrientation returns a copy of the JPEG stream data with its
// orientation tag set to o. An existing Exif orientation entry is patched in
// place; otherwise existing Exif segments are replaced by a minimal one
// holding only the orientation.
func SetOrientation(data []byte, o int) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, errNotJPEG
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)+36))
	out.Write(data[:2])
	out.Write(minimalAPP1(uint16(o)))

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("%w: bad marker at offset %d", errNotJPEG, pos)
		}
		marker := data[pos+1]
		if marker == markerSOS || marker == markerEOI {
			break
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		end := pos + 2 + length
		if length < 2 || end > len(data) {
			return nil, fmt.Errorf("%w: truncated segment at offset %d", errNotJPEG, pos)
		}

		payload := data[pos+4 : end]
		if marker == markerAPP1 && bytes.HasPrefix(payload, exifHeader) {
			patched := append([]byte(nil), data...)
			if patchOrientation(patched[pos+4+len(exifHeader):end], uint16(o)) {
				return patched, nil
			}
			// Dropped; the minimal segment written above replaces it.
			pos = end
			continue
		}

		out.Write(data[pos:end])
		pos = end
	}

	out.Write(data[pos:])
	return out.Bytes(), nil
}

// patchOrientation overwrites the orientation entry of IFD0 in a TIFF
// block. It reports false when there is no such entry.
func patchOrientation(tiff []byte, o uint16) bool {
	if len(tiff) < 8 {
		return false
	}

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return false
	}

	ifd := int(order.Uint32(tiff[4:8]))
	if ifd+2 > len(tiff) {
		return false
	}

	count := int(order.Uint16(tiff[ifd : ifd+2]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			return false
		}
		if order.Uint16(tiff[entry:entry+2]) != tagOrientation {
			continue
		}
		if order.Uint16(tiff[entry+2:entry+4]) != typeShort {
			return false
		}
		order.PutUint16(tiff[entry+8:entry+10], o)
		return true
	}
	return false
}

// minimalAPP1 builds an APP1 segment whose big-endian TIFF block holds a
// single IFD0 entry: the orientation.
func minimalAPP1(o uint16) []byte {
	b := make([]byte, 0, 36)
	b = append(b, 0xFF, markerAPP1)
	b = binary.BigEndian.AppendUint16(b, 34)
	b = append(b, exifHeader...)
	b = append(b, 'M', 'M', 0x00, 0x2A)
	b = binary.BigEndian.AppendUint32(b, 8)
	b = binary.BigEndian.AppendUint16(b, 1)
	b = binary.BigEndian.AppendUint16(b, tagOrientation)
	b = binary.BigEndian.AppendUint16(b, typeShort)
	b = binary.BigEndian.AppendUint32(b, 1)
	b = binary.BigEndian.AppendUint16(b, o)
	b = append(b, 0x00, 0x00)
	b = binary.BigEndian.AppendUint32(b, 0)
	return b
}
