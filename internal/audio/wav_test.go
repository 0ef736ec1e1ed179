package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVMonoRoundTrip(t *testing.T) {
	pcm := []byte{
		0x00, 0x00,
		0xE8, 0x03, // 1000
		0x18, 0xFC, // -1000
	}
	wav, err := EncodeWAV(Clip{PCM: pcm, SampleRate: 16000})
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("len(wav) = %d, want %d", len(wav), 44+len(pcm))
	}
	clip, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Fatalf("SampleRate = %d, want 16000", clip.SampleRate)
	}
	if !bytes.Equal(clip.PCM, pcm) {
		t.Fatalf("pcm mismatch: got=%v want=%v", clip.PCM, pcm)
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// Frame 1: L=1000, R=-1000 => avg=0
	// Frame 2: L=3000, R=1000  => avg=2000
	stereo := []byte{
		0xE8, 0x03, 0x18, 0xFC,
		0xB8, 0x0B, 0xE8, 0x03,
	}
	clip, err := DecodeWAV(encodeStereo(t, stereo, 24000))
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if clip.SampleRate != 24000 {
		t.Fatalf("SampleRate = %d, want 24000", clip.SampleRate)
	}
	if len(clip.PCM) != 4 {
		t.Fatalf("len(PCM) = %d, want 4", len(clip.PCM))
	}
	s1 := int16(binary.LittleEndian.Uint16(clip.PCM[0:2]))
	s2 := int16(binary.LittleEndian.Uint16(clip.PCM[2:4]))
	if s1 != 0 || s2 != 2000 {
		t.Fatalf("downmix samples = [%d %d], want [0 2000]", s1, s2)
	}
}

func TestDecodeWAVRejectsInvalid(t *testing.T) {
	cases := map[string][]byte{
		"short":      []byte("RIFF"),
		"not riff":   []byte("OggS0000WAVEfmt "),
		"no fmt":     append([]byte("RIFF\x00\x00\x00\x00WAVE"), []byte("data\x02\x00\x00\x00\x01\x02")...),
		"bad length": append([]byte("RIFF\x00\x00\x00\x00WAVE"), []byte("data\xff\x00\x00\x00")...),
	}
	for name, data := range cases {
		if _, err := DecodeWAV(data); err == nil {
			t.Fatalf("DecodeWAV(%s) expected error", name)
		}
	}
}

func TestReadClipRawPCM(t *testing.T) {
	clip, err := ReadClip(bytes.NewReader([]byte{1, 2, 3, 4, 5}), 8000)
	if err != nil {
		t.Fatalf("ReadClip() error = %v", err)
	}
	if clip.SampleRate != 8000 || len(clip.PCM) != 4 {
		t.Fatalf("clip = %d bytes @ %d, want 4 bytes @ 8000", len(clip.PCM), clip.SampleRate)
	}
	if got := (Clip{PCM: make([]byte, 32000), SampleRate: 16000}).DurationMS(); got != 1000 {
		t.Fatalf("DurationMS() = %d, want 1000", got)
	}
}

func TestReadClipFileDetectsWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAVFile(path, Clip{PCM: []byte{9, 0, 8, 0}, SampleRate: 22050}); err != nil {
		t.Fatalf("WriteWAVFile() error = %v", err)
	}
	clip, err := ReadClipFile(path, 16000)
	if err != nil {
		t.Fatalf("ReadClipFile() error = %v", err)
	}
	if clip.SampleRate != 22050 || !bytes.Equal(clip.PCM, []byte{9, 0, 8, 0}) {
		t.Fatalf("clip = %+v", clip)
	}
	if _, err := ReadClipFile(filepath.Join(t.TempDir(), "missing.wav"), 16000); !os.IsNotExist(err) {
		t.Fatalf("ReadClipFile(missing) error = %v, want not-exist", err)
	}
}

func encodeStereo(t *testing.T, stereoPCM []byte, sampleRate int) []byte {
	t.Helper()
	if len(stereoPCM)%4 != 0 {
		t.Fatalf("stereoPCM length must be multiple of 4, got %d", len(stereoPCM))
	}
	dataSize := uint32(len(stereoPCM))

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36)+dataSize)
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&b, binary.LittleEndian, uint16(2)) // stereo
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*4))
	_ = binary.Write(&b, binary.LittleEndian, uint16(4))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, dataSize)
	b.Write(stereoPCM)
	return b.Bytes()
}
