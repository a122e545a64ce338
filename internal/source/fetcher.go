package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"audiototext/internal/command"
)

const (
	stageDownloading = "downloading"

	tempAudioSuffix = "_temp_audio"
	audioCodec      = "mp3"
	audioQuality    = "192K"
)

// Fetched is a downloaded audio file ready for transcription.
type Fetched struct {
	Path     string
	Duration time.Duration
	Log      command.Log
}

// Fetcher downloads the best audio stream of a URL with yt-dlp and converts it to mp3.
type Fetcher struct {
	ytDlpPath      string
	ffmpegLocation string
	runner         command.Runner
	stat           func(name string) (os.FileInfo, error)
	readDir        func(name string) ([]os.DirEntry, error)
	remove         func(name string) error
	probe          func(path string) (time.Duration, error)
	log            logrus.FieldLogger
}

// NewFetcher constructs the production fetcher. ffmpegLocation is passed to
// yt-dlp only when it names an explicit path.
func NewFetcher(ytDlpPath, ffmpegLocation string, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		ytDlpPath:      ytDlpPath,
		ffmpegLocation: ffmpegLocation,
		runner:         command.ExecRunner{},
		stat:           os.Stat,
		readDir:        os.ReadDir,
		remove:         os.Remove,
		probe:          ProbeMP3,
		log:            log,
	}
}

// NewFetcherForTests constructs a fetcher with injectable dependencies.
func NewFetcherForTests(
	ytDlpPath string,
	runner command.Runner,
	probe func(path string) (time.Duration, error),
	log logrus.FieldLogger,
) *Fetcher {
	f := NewFetcher(ytDlpPath, "", log)
	f.runner = runner
	f.probe = probe
	return f
}

// TempAudioPath is where the downloaded audio for jobID ends up.
func TempAudioPath(outputDir, jobID string) string {
	return filepath.Join(outputDir, jobID+tempAudioSuffix+"."+audioCodec)
}

// OutputTemplate is the yt-dlp -o template for jobID; yt-dlp substitutes the extension.
func OutputTemplate(outputDir, jobID string) string {
	return filepath.Join(outputDir, jobID+tempAudioSuffix+".%(ext)s")
}

// Fetch downloads url into outputDir and returns the mp3 path.
func (f *Fetcher) Fetch(ctx context.Context, url, outputDir, jobID string) (Fetched, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Fetched{}, &command.StageError{
			Stage:   stageDownloading,
			Message: fmt.Sprintf("cannot create output directory: %s", outputDir),
			Err:     err,
		}
	}

	args := buildYtDlpArgs(url, OutputTemplate(outputDir, jobID), f.ffmpegLocation)
	f.log.WithField("url", url).Info("Downloading audio")

	res, runErr := f.runner.Run(ctx, f.ytDlpPath, args...)
	log := command.NewLog(f.ytDlpPath, args, res)
	if runErr != nil {
		return Fetched{}, &command.StageError{
			Stage:   stageDownloading,
			Message: "yt-dlp download failed",
			Log:     log,
			Err:     runErr,
		}
	}

	path := TempAudioPath(outputDir, jobID)
	if _, err := f.stat(path); err != nil {
		return Fetched{}, &command.StageError{
			Stage:   stageDownloading,
			Message: fmt.Sprintf("yt-dlp completed but %s is missing", filepath.Base(path)),
			Log:     log,
			Err:     err,
		}
	}

	duration, err := f.probe(path)
	if err != nil {
		return Fetched{}, &command.StageError{
			Stage:   stageDownloading,
			Message: fmt.Sprintf("downloaded file is not valid mp3 audio: %s", path),
			Log:     log,
			Err:     err,
		}
	}

	f.log.WithFields(logrus.Fields{
		"path":     path,
		"duration": duration.Round(time.Second).String(),
	}).Info("Audio downloaded")

	return Fetched{Path: path, Duration: duration, Log: log}, nil
}

// Cleanup removes every temporary audio artifact of jobID, including partial
// downloads left by a failed run. Missing files are not an error.
func (f *Fetcher) Cleanup(outputDir, jobID string) error {
	entries, err := f.readDir(outputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	prefix := jobID + tempAudioSuffix + "."
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path := filepath.Join(outputDir, entry.Name())
		if err := f.remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		f.log.WithField("path", path).Debug("Removed temporary audio")
	}
	return errors.Join(errs...)
}

// buildYtDlpArgs requests best audio, post-processed to 192 kbps mp3.
func buildYtDlpArgs(url, outputTemplate, ffmpegLocation string) []string {
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", audioCodec,
		"--audio-quality", audioQuality,
		"--output", outputTemplate,
		"--no-playlist",
		"--quiet",
		"--no-progress",
		"--no-warnings",
	}
	if loc := strings.TrimSpace(ffmpegLocation); loc != "" && loc != "ffmpeg" {
		args = append(args, "--ffmpeg-location", loc)
	}
	return append(args, "--", url)
}
