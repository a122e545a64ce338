package transcribe

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

const (
	whisperSampleRate = 16000
	whisperChannels   = 1
)

// InspectWAV checks that path is a PCM WAV file whisper.cpp can consume.
func InspectWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return fmt.Errorf("invalid wav file: %w", err)
		}
		return fmt.Errorf("invalid wav file: %s", path)
	}
	if dec.SampleRate != whisperSampleRate {
		return fmt.Errorf("sample rate = %d, want %d", dec.SampleRate, whisperSampleRate)
	}
	if dec.NumChans != whisperChannels {
		return fmt.Errorf("channels = %d, want %d", dec.NumChans, whisperChannels)
	}
	return nil
}
