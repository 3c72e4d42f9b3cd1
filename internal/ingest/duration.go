package ingest

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"

	"github.com/franz/music-catalog/internal/util"
)

// DurationFunc returns the playing time in whole seconds of an audio
// stream. Ext is the lower-case file extension, size the file size.
type DurationFunc func(r io.ReadSeeker, ext string, size int64) (int, error)

// mp3FallbackBitrate is assumed when no MP3 frame can be decoded
const mp3FallbackBitrate = 192000

// wavHeaderSize is the canonical PCM WAV header length
const wavHeaderSize = 44

// ReadDuration measures MP3, FLAC and WAV files
func ReadDuration(r io.ReadSeeker, ext string, size int64) (int, error) {
	switch ext {
	case ".mp3":
		return durationMP3(r, size)
	case ".flac":
		return durationFLAC(r)
	case ".wav":
		return durationWAV(r, size)
	}
	return 0, fmt.Errorf("%w: duration of %s files", util.ErrUnsupported, ext)
}

// durationMP3 sums decoded frame durations, falling back to a bitrate
// estimate when no frame decodes
func durationMP3(r io.Reader, size int64) (int, error) {
	dec := mp3.NewDecoder(r)

	var total time.Duration
	var frame mp3.Frame
	skipped := 0
	frames := 0
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if frames == 0 && !errors.Is(err, io.EOF) {
				util.DebugLog("mp3 decode failed: %v", err)
			}
			break
		}
		total += frame.Duration()
		frames++
	}

	if frames == 0 {
		return estimateSeconds(size, mp3FallbackBitrate)
	}
	return roundSeconds(total), nil
}

// durationFLAC reads the sample count from STREAMINFO
func durationFLAC(r io.Reader) (int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return 0, fmt.Errorf("%w: flac: %v", util.ErrCorrupt, err)
	}
	info := stream.Info
	if info.NSamples == 0 || info.SampleRate == 0 {
		return 0, fmt.Errorf("%w: flac stream missing sample info", util.ErrCorrupt)
	}
	secs := time.Duration(float64(info.NSamples) / float64(info.SampleRate) * float64(time.Second))
	return roundSeconds(secs), nil
}

// durationWAV reads the format header and derives the frame count from the
// payload size
func durationWAV(r io.ReadSeeker, size int64) (int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%w: invalid wav file", util.ErrCorrupt)
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("%w: invalid wav header", util.ErrCorrupt)
	}

	pcmBytes := size - wavHeaderSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	frameBytes := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameBytes <= 0 {
		return 0, fmt.Errorf("%w: invalid sample frame size", util.ErrCorrupt)
	}

	frames := pcmBytes / frameBytes
	secs := time.Duration(float64(frames) / float64(dec.SampleRate) * float64(time.Second))
	return roundSeconds(secs), nil
}

func estimateSeconds(size int64, bitsPerSecond int64) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: empty file", util.ErrCorrupt)
	}
	secs := time.Duration(float64(size*8) / float64(bitsPerSecond) * float64(time.Second))
	return roundSeconds(secs), nil
}

// roundSeconds rounds to the nearest second; anything audible counts as
// at least one
func roundSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs == 0 && d > 0 {
		return 1
	}
	return secs
}
