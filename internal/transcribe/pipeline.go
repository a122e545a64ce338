package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"audiototext/internal/command"
	"audiototext/internal/domain"
)

const (
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
)

// Request contains the resolved inputs and execution callbacks for one run.
type Request struct {
	AudioPath string
	ModelPath string
	// Language is a whisper language code; empty means auto-detect.
	Language string
	Task     domain.Task
	OnStage  func(stage string)
	OnLog    func(log command.Log)
}

// Result contains the parsed transcript. Command logs are delivered through
// Request.OnLog as each command finishes.
type Result struct {
	Transcription domain.TranscriptionResult
}

// Pipeline orchestrates ffmpeg preprocessing and whisper.cpp inference.
type Pipeline struct {
	ffmpegPath   string
	whisperPath  string
	runner       command.Runner
	mkdirTemp    func(dir, pattern string) (string, error)
	removeAll    func(path string) error
	stat         func(name string) (os.FileInfo, error)
	readFile     func(name string) ([]byte, error)
	inspectAudio func(path string) error
}

// NewPipeline constructs the production pipeline with OS dependencies.
func NewPipeline(ffmpegPath, whisperPath string) *Pipeline {
	return &Pipeline{
		ffmpegPath:   ffmpegPath,
		whisperPath:  whisperPath,
		runner:       command.ExecRunner{},
		mkdirTemp:    os.MkdirTemp,
		removeAll:    os.RemoveAll,
		stat:         os.Stat,
		readFile:     os.ReadFile,
		inspectAudio: InspectWAV,
	}
}

// Run converts the audio to 16 kHz mono WAV, runs whisper.cpp once over the
// whole file and parses its JSON transcript. The temporary workspace is
// removed before Run returns, on every path.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, &command.StageError{
			Stage:   StagePreprocessing,
			Message: "audio path is required",
		}
	}
	if _, err := p.stat(req.AudioPath); err != nil {
		return Result{}, &command.StageError{
			Stage:   StagePreprocessing,
			Message: fmt.Sprintf("cannot access audio: %s", req.AudioPath),
			Err:     err,
		}
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return Result{}, &command.StageError{
			Stage:   StageTranscribing,
			Message: "model path is required",
		}
	}

	tempDir, err := p.mkdirTemp("", "audiototext-*")
	if err != nil {
		return Result{}, &command.StageError{
			Stage:   StagePreprocessing,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() { _ = p.removeAll(tempDir) }()

	wavPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	emitStage(req.OnStage, StagePreprocessing)
	args := buildFFmpegArgs(req.AudioPath, wavPath)

	cmdResult, runErr := p.runner.Run(ctx, p.ffmpegPath, args...)
	ffmpegLog := command.NewLog(p.ffmpegPath, args, cmdResult)
	emitLog(req.OnLog, ffmpegLog)
	if runErr != nil {
		return Result{}, &command.StageError{
			Stage:   StagePreprocessing,
			Message: "ffmpeg audio conversion failed",
			Log:     ffmpegLog,
			Err:     runErr,
		}
	}

	if err := p.inspectAudio(wavPath); err != nil {
		return Result{}, &command.StageError{
			Stage:   StagePreprocessing,
			Message: "ffmpeg output is not usable 16 kHz mono audio",
			Log:     ffmpegLog,
			Err:     err,
		}
	}

	outBase := filepath.Join(tempDir, "transcript")
	emitStage(req.OnStage, StageTranscribing)
	whisperArgs := buildWhisperArgs(req.ModelPath, wavPath, outBase, req.Language, req.Task)

	whisperResult, runErr := p.runner.Run(ctx, p.whisperPath, whisperArgs...)
	whisperLog := command.NewLog(p.whisperPath, whisperArgs, whisperResult)
	emitLog(req.OnLog, whisperLog)
	if runErr != nil {
		return Result{}, &command.StageError{
			Stage:   StageTranscribing,
			Message: "whisper.cpp transcription failed",
			Log:     whisperLog,
			Err:     runErr,
		}
	}

	jsonPath := outBase + ".json"
	content, err := p.readFile(jsonPath)
	if err != nil {
		return Result{}, &command.StageError{
			Stage:   StageTranscribing,
			Message: "whisper.cpp completed but transcript .json file is missing",
			Log:     whisperLog,
			Err:     err,
		}
	}

	transcription, err := parseWhisperJSON(content)
	if err != nil {
		return Result{}, &command.StageError{
			Stage:   StageTranscribing,
			Message: "cannot parse whisper.cpp transcript",
			Log:     whisperLog,
			Err:     err,
		}
	}
	if transcription.Language == "" {
		transcription.Language = req.Language
	}

	return Result{
		Transcription: transcription,
	}, nil
}

// emitStage forwards stage updates when callback is configured.
func emitStage(cb func(stage string), stage string) {
	if cb != nil {
		cb(stage)
	}
}

// emitLog forwards command logs when callback is configured.
func emitLog(cb func(log command.Log), log command.Log) {
	if cb != nil {
		cb(log)
	}
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper.cpp args for JSON transcript export.
// whisper.cpp defaults to English, so auto-detect is requested explicitly.
func buildWhisperArgs(modelPath, audioPath, outBase, language string, task domain.Task) []string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
		"-l", lang,
		"-np",
	}
	if task == domain.TaskTranslate {
		args = append(args, "-tr")
	}
	return args
}

// NewPipelineForTests constructs a pipeline with injectable dependencies.
func NewPipelineForTests(
	ffmpegPath string,
	whisperPath string,
	runner command.Runner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	inspectAudio func(path string) error,
) *Pipeline {
	return &Pipeline{
		ffmpegPath:   ffmpegPath,
		whisperPath:  whisperPath,
		runner:       runner,
		mkdirTemp:    mkdirTemp,
		removeAll:    removeAll,
		stat:         os.Stat,
		readFile:     os.ReadFile,
		inspectAudio: inspectAudio,
	}
}
