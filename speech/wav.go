package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	headerSize = 44
	pcmCodec   = 1
)

// ErrNotWAV reports a payload without a RIFF/WAVE envelope
var ErrNotWAV = errors.New("not a RIFF/WAVE payload")

// Format describes the PCM layout of a clip
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// DefaultFormat matches the capture settings of the mobile recorder
var DefaultFormat = Format{Channels: 1, SampleRate: 44100, BitsPerSample: 16}

// BlockAlign is the byte width of one sample frame
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// ByteRate is the bytes of PCM per second of audio
func (f Format) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

// Clip is a decoded PCM payload
type Clip struct {
	Format Format
	Data   []byte
}

// Duration is the play time of the clip
func (c *Clip) Duration() time.Duration {
	align := c.Format.BlockAlign()
	if align == 0 || c.Format.SampleRate == 0 {
		return 0
	}
	frames := len(c.Data) / align
	return time.Duration(frames) * time.Second / time.Duration(c.Format.SampleRate)
}

// EncodeWAV wraps raw PCM bytes in a canonical 44-byte WAV header
func EncodeWAV(format Format, pcm []byte) []byte {
	out := make([]byte, headerSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], pcmCodec)
	binary.LittleEndian.PutUint16(out[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(format.ByteRate()))
	binary.LittleEndian.PutUint16(out[32:34], uint16(format.BlockAlign()))
	binary.LittleEndian.PutUint16(out[34:36], uint16(format.BitsPerSample))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// ParseWAV decodes a PCM WAV payload, walking chunks so files with extra
// metadata chunks before the data chunk still parse.
func ParseWAV(data []byte) (*Clip, error) {
	if len(data) < headerSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		format  Format
		haveFmt bool
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("truncated %q chunk: %d bytes claimed", id, size)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", size)
			}
			if codec := binary.LittleEndian.Uint16(data[body : body+2]); codec != pcmCodec {
				return nil, fmt.Errorf("unsupported codec %d, want PCM", codec)
			}
			format = Format{
				Channels:      int(binary.LittleEndian.Uint16(data[body+2 : body+4])),
				SampleRate:    int(binary.LittleEndian.Uint32(data[body+4 : body+8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(data[body+14 : body+16])),
			}
			if format.Channels <= 0 || format.SampleRate <= 0 || format.BitsPerSample <= 0 {
				return nil, fmt.Errorf("invalid format: %+v", format)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("data chunk before fmt chunk")
			}
			return &Clip{Format: format, Data: data[body : body+size]}, nil
		}

		// chunk bodies are padded to even lengths
		offset = body + size + size%2
	}
	return nil, errors.New("no data chunk")
}

// Silence renders d of silent PCM in the given format as a complete file
func Silence(format Format, d time.Duration) []byte {
	frames := int(int64(d) * int64(format.SampleRate) / int64(time.Second))
	return EncodeWAV(format, make([]byte, frames*format.BlockAlign()))
}
