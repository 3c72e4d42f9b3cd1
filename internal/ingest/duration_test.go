package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/franz/music-catalog/internal/util"
)

// pcmWAV builds a canonical 16-bit mono PCM file of the given length
func pcmWAV(sampleRate, seconds int) []byte {
	dataSize := sampleRate * 2 * seconds

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func TestReadDuration_WAV(t *testing.T) {
	data := pcmWAV(8000, 3)

	secs, err := ReadDuration(bytes.NewReader(data), ".wav", int64(len(data)))
	if err != nil {
		t.Fatalf("ReadDuration failed: %v", err)
	}
	if secs != 3 {
		t.Errorf("expected 3 seconds, got %d", secs)
	}
}

func TestReadDuration_InvalidWAV(t *testing.T) {
	data := []byte("definitely not a riff file")
	if _, err := ReadDuration(bytes.NewReader(data), ".wav", int64(len(data))); !errors.Is(err, util.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestReadDuration_MP3Estimate(t *testing.T) {
	// No decodable frames: 48000 bytes at 192 kbps
	data := make([]byte, 48000)

	secs, err := ReadDuration(bytes.NewReader(data), ".mp3", int64(len(data)))
	if err != nil {
		t.Fatalf("ReadDuration failed: %v", err)
	}
	if secs != 2 {
		t.Errorf("expected 2 second estimate, got %d", secs)
	}
}

func TestReadDuration_FLACCorrupt(t *testing.T) {
	data := []byte("fLaX")
	if _, err := ReadDuration(bytes.NewReader(data), ".flac", int64(len(data))); !errors.Is(err, util.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestReadDuration_Unsupported(t *testing.T) {
	if _, err := ReadDuration(bytes.NewReader(nil), ".ogg", 0); !errors.Is(err, util.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestRoundSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 0},
		{200 * time.Millisecond, 1},
		{1400 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{3 * time.Minute, 180},
	}
	for _, tt := range tests {
		if got := roundSeconds(tt.in); got != tt.want {
			t.Errorf("roundSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
