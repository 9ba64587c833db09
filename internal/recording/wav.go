package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	ErrInvalidAudio = errors.New("invalid audio file")
	ErrTooShort     = errors.New("recording too short")
)

// WriteWAV encodes little-endian 16-bit PCM as a WAV file at path.
func WriteWAV(path string, pcm []byte, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(pcm)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// Validate checks that path decodes as WAV and lasts at least min.
func Validate(path string, min time.Duration) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAudio, path)
	}
	duration, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if duration < min {
		return duration, fmt.Errorf("%w: %v < %v", ErrTooShort, duration.Round(time.Millisecond), min)
	}
	return duration, nil
}
