package detect

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const maxTIFFFrames = 65536

// countTIFFFrames counts the frames of a (possibly multi-page) TIFF by
// walking the IFD chain. Only directory offsets are read; pixel data is
// never decoded.
func countTIFFFrames(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var header [8]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return 0, fmt.Errorf("failed to read TIFF header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a TIFF file")
	}
	if order.Uint16(header[2:4]) != 42 {
		return 0, fmt.Errorf("bad TIFF magic number")
	}

	offset := int64(order.Uint32(header[4:8]))
	frames := 0
	for offset != 0 {
		if frames >= maxTIFFFrames {
			return 0, fmt.Errorf("TIFF IFD chain too long (possible cycle)")
		}
		var countBuf [2]byte
		if _, err := f.ReadAt(countBuf[:], offset); err != nil {
			return 0, fmt.Errorf("failed to read IFD at offset %d: %w", offset, err)
		}
		entries := int64(order.Uint16(countBuf[:]))

		var nextBuf [4]byte
		if _, err := f.ReadAt(nextBuf[:], offset+2+entries*12); err != nil {
			return 0, fmt.Errorf("failed to read next-IFD offset: %w", err)
		}
		frames++
		offset = int64(order.Uint32(nextBuf[:]))
	}
	return frames, nil
}
