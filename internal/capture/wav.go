package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const wavHeaderSize = 44

var ErrNotWAV = errors.New("not a PCM WAV stream")

// EncodeWAV writes mono 16-bit PCM samples into a RIFF/WAVE container. Zero
// samples produce a valid header-only file.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(samples)*2)

	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

func EncodeFrames(frames [][]int16, sampleRate int) []byte {
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	samples := make([]int16, 0, total)
	for _, f := range frames {
		samples = append(samples, f...)
	}
	return EncodeWAV(samples, sampleRate)
}

// DecodeWAV reads a 16-bit PCM WAV. Multi-channel input is reduced to its
// first channel.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		channels   int
		sampleRate int
		bits       int
		haveFormat bool
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(data) {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("%w: format %d", ErrNotWAV, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			if bits != 16 || channels < 1 {
				return nil, 0, fmt.Errorf("%w: %d-bit %d-channel", ErrNotWAV, bits, channels)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, 0, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			raw := data[body:end]
			stride := 2 * channels
			samples := make([]int16, 0, len(raw)/stride)
			for i := 0; i+1 < len(raw); i += stride {
				samples = append(samples, int16(binary.LittleEndian.Uint16(raw[i:i+2])))
			}
			return samples, sampleRate, nil
		}

		// chunks are word aligned
		pos = body + size + size%2
	}

	return nil, 0, fmt.Errorf("%w: no data chunk", ErrNotWAV)
}
