package source

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// ProbeMP3 decodes the MP3 frame headers of path and returns the stream duration.
func ProbeMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}

	// Length is in bytes of 16-bit stereo PCM.
	samples := dec.Length() / 4
	if samples <= 0 || dec.SampleRate() <= 0 {
		return 0, errors.New("decode mp3: no audio frames")
	}
	return time.Duration(samples) * time.Second / time.Duration(dec.SampleRate()), nil
}
