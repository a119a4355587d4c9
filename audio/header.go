package audio

import (
	"encoding/binary"
)

// unknownSize is what streaming writers put in the RIFF and data size fields
// when the final length is not known up front.
const unknownSize = 0xFFFFFFFF

// capSizes returns data with the RIFF size and the data chunk size clamped to
// the bytes actually present, so a header written before the stream ended
// still reads to EOF. data itself is not modified; a copy is made only when
// a size has to change.
func capSizes(data []byte) []byte {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return data
	}
	out, copied := data, false
	patch := func(off int, v uint32) {
		if !copied {
			out, copied = append([]byte(nil), data...), true
		}
		binary.LittleEndian.PutUint32(out[off:off+4], v)
	}

	if riff := binary.LittleEndian.Uint32(data[4:8]); int64(riff) > int64(len(data)-8) {
		patch(4, uint32(len(data)-8))
	}

	blockAlign := 0
	for pos := 12; pos+8 <= len(data); {
		id := string(data[pos : pos+4])
		size := int64(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		remaining := int64(len(data) - body)

		switch id {
		case "fmt ":
			if size >= 16 && remaining >= 16 {
				blockAlign = int(binary.LittleEndian.Uint16(data[body+12 : body+14]))
			}
		case "data":
			if size > remaining || size == unknownSize {
				capped := remaining
				if blockAlign > 0 {
					capped -= capped % int64(blockAlign)
				}
				patch(pos+4, uint32(capped))
			}
			return out
		}
		if size > remaining {
			return out
		}
		// chunks are padded to an even boundary
		pos = body + int(size) + int(size%2)
	}
	return out
}
