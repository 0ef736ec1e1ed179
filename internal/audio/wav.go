package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Clip is mono PCM16LE audio with its sample rate.
type Clip struct {
	PCM        []byte
	SampleRate int
}

// DurationMS reports the clip length in milliseconds.
func (c Clip) DurationMS() int {
	if c.SampleRate <= 0 {
		return 0
	}
	return len(c.PCM) / 2 * 1000 / c.SampleRate
}

// ReadClip reads all of r. A RIFF/WAVE stream is decoded and downmixed to
// mono; anything else is taken as raw mono PCM16LE at fallbackRate.
func ReadClip(r io.Reader, fallbackRate int) (Clip, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Clip{}, fmt.Errorf("read audio: %w", err)
	}
	if IsWAV(data) {
		return DecodeWAV(data)
	}
	if fallbackRate <= 0 {
		fallbackRate = 16000
	}
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	return Clip{PCM: data, SampleRate: fallbackRate}, nil
}

// ReadClipFile is ReadClip over the named file.
func ReadClipFile(path string, fallbackRate int) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, err
	}
	defer f.Close()
	return ReadClip(f, fallbackRate)
}

func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV extracts PCM16 samples from a WAV container. Multi-channel
// audio is averaged down to mono.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < 12 {
		return Clip{}, fmt.Errorf("wav too short")
	}
	if !IsWAV(data) {
		return Clip{}, fmt.Errorf("unsupported wav header")
	}

	var (
		haveFmt    bool
		format     uint16
		channels   uint16
		sampleRate int
		bits       uint16
		pcm        []byte
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if size < 0 || off+size > len(data) {
			return Clip{}, fmt.Errorf("invalid wav chunk size")
		}
		chunk := data[off : off+size]
		switch id {
		case "fmt ":
			if len(chunk) < 16 {
				return Clip{}, fmt.Errorf("invalid wav fmt chunk")
			}
			format = binary.LittleEndian.Uint16(chunk[0:2])
			channels = binary.LittleEndian.Uint16(chunk[2:4])
			sampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			bits = binary.LittleEndian.Uint16(chunk[14:16])
			haveFmt = true
		case "data":
			pcm = append(pcm[:0], chunk...)
		}
		off += size
		if size%2 == 1 {
			off++
		}
	}
	switch {
	case !haveFmt:
		return Clip{}, fmt.Errorf("wav fmt chunk missing")
	case len(pcm) == 0:
		return Clip{}, fmt.Errorf("wav data chunk missing")
	case format != 1:
		return Clip{}, fmt.Errorf("unsupported wav audio format %d", format)
	case bits != 16:
		return Clip{}, fmt.Errorf("unsupported wav bits_per_sample %d", bits)
	case channels == 0:
		return Clip{}, fmt.Errorf("invalid wav channels=0")
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	if channels == 1 {
		if len(pcm)%2 != 0 {
			pcm = pcm[:len(pcm)-1]
		}
		return Clip{PCM: pcm, SampleRate: sampleRate}, nil
	}

	frameBytes := int(channels) * 2
	frames := len(pcm) / frameBytes
	mono := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		base := i * frameBytes
		sum := 0
		for ch := 0; ch < int(channels); ch++ {
			sum += int(int16(binary.LittleEndian.Uint16(pcm[base+ch*2 : base+ch*2+2])))
		}
		binary.LittleEndian.PutUint16(mono[i*2:i*2+2], uint16(int16(sum/int(channels))))
	}
	return Clip{PCM: mono, SampleRate: sampleRate}, nil
}

// EncodeWAV wraps the clip in a mono 16-bit WAV container.
func EncodeWAV(c Clip) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAV(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteWAVFile(path string, c Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, c); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func WriteWAV(out io.Writer, c Clip) error {
	const (
		channels = 1
		bits     = 16
	)
	rate := c.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	dataSize := uint32(len(c.PCM))

	w := bufio.NewWriter(out)
	header := []any{
		[]byte("RIFF"), uint32(36) + dataSize, []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(channels),
		uint32(rate), uint32(rate * channels * bits / 8), uint16(channels * bits / 8), uint16(bits),
		[]byte("data"), dataSize,
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(c.PCM); err != nil {
		return err
	}
	return w.Flush()
}
