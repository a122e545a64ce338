package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"audiototext/internal/command"
	"audiototext/internal/domain"
)

const sampleWhisperJSON = `{
  "systeminfo": "AVX = 1",
  "model": {"type": "small", "multilingual": true},
  "params": {"model": "ggml-small.bin", "language": "auto", "translate": false},
  "result": {"language": "en"},
  "transcription": [
    {"timestamps": {"from": "00:00:00,000", "to": "00:00:02,000"}, "offsets": {"from": 0, "to": 2000}, "text": " Hello"},
    {"timestamps": {"from": "00:01:05,000", "to": "00:01:07,500"}, "offsets": {"from": 65000, "to": 67500}, "text": " world"}
  ]
}`

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (command.Result, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	if f.run == nil {
		return command.Result{}, nil
	}
	return f.run(ctx, name, args...)
}

// TestPipelineRunSuccess checks the full happy path with auto language.
func TestPipelineRunSuccess(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "meeting.mp3")
	modelPath := filepath.Join(root, "ggml-small.bin")
	mustWriteFile(t, audioPath, "media")

	call := 0
	var whisperArgs []string
	var stages []string
	var logs []command.Log
	var tempDir string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
			call++
			switch call {
			case 1:
				if name != "ffmpeg-custom" {
					t.Fatalf("command 1 name = %q, want ffmpeg-custom", name)
				}
				outPath := args[len(args)-1]
				tempDir = filepath.Dir(outPath)
				writeTestWAV(t, outPath, 16000, 1)
				return command.Result{Stdout: "ffmpeg ok"}, nil
			case 2:
				if name != "whisper-custom" {
					t.Fatalf("command 2 name = %q, want whisper-custom", name)
				}
				whisperArgs = append([]string{}, args...)
				mustWriteFile(t, argValue(args, "-of")+".json", sampleWhisperJSON)
				return command.Result{Stdout: "whisper ok"}, nil
			default:
				t.Fatalf("unexpected command call: %d", call)
				return command.Result{}, nil
			}
		},
	}

	pipeline := NewPipelineForTests("ffmpeg-custom", "whisper-custom", runner, os.MkdirTemp, os.RemoveAll, InspectWAV)
	result, err := pipeline.Run(context.Background(), Request{
		AudioPath: audioPath,
		ModelPath: modelPath,
		Task:      domain.TaskTranscribe,
		OnStage:   func(stage string) { stages = append(stages, stage) },
		OnLog:     func(log command.Log) { logs = append(logs, log) },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if call != 2 {
		t.Fatalf("command calls = %d, want 2", call)
	}
	if len(logs) != 2 || logs[0].Command != "ffmpeg-custom" || logs[1].Command != "whisper-custom" {
		t.Fatalf("logs = %+v, want ffmpeg then whisper", logs)
	}
	if strings.Join(stages, ",") != "preprocessing,transcribing" {
		t.Fatalf("stages = %v", stages)
	}
	if got := argValue(whisperArgs, "-l"); got != "auto" {
		t.Fatalf("language arg = %q, want auto", got)
	}
	if hasArg(whisperArgs, "-tr") {
		t.Fatalf("transcribe task must not pass -tr, args=%v", whisperArgs)
	}
	if argValue(whisperArgs, "-m") != modelPath {
		t.Fatalf("model arg = %q", argValue(whisperArgs, "-m"))
	}

	tr := result.Transcription
	if tr.Text != " Hello world" {
		t.Fatalf("text = %q", tr.Text)
	}
	if tr.Language != "en" {
		t.Fatalf("language = %q, want en", tr.Language)
	}
	want := []domain.Segment{
		{Start: 0, End: 2, Text: " Hello"},
		{Start: 65, End: 67.5, Text: " world"},
	}
	if len(tr.Segments) != len(want) {
		t.Fatalf("segments = %+v", tr.Segments)
	}
	for i := range want {
		if tr.Segments[i] != want[i] {
			t.Fatalf("segment %d = %+v, want %+v", i, tr.Segments[i], want[i])
		}
	}

	if _, err := os.Stat(tempDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp dir cleanup, stat err = %v", err)
	}
}

// TestPipelineRunTranslatePassesThrough checks task and fixed language flags.
func TestPipelineRunTranslatePassesThrough(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "clip.wav")
	mustWriteFile(t, audioPath, "media")

	var whisperArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
			if name == "ffmpeg" {
				mustWriteFile(t, args[len(args)-1], "wav")
				return command.Result{}, nil
			}
			whisperArgs = append([]string{}, args...)
			mustWriteFile(t, argValue(args, "-of")+".json", `{"result":{"language":""},"transcription":[]}`)
			return command.Result{}, nil
		},
	}

	pipeline := NewPipelineForTests("ffmpeg", "whisper.cpp", runner, os.MkdirTemp, os.RemoveAll, func(string) error { return nil })
	result, err := pipeline.Run(context.Background(), Request{
		AudioPath: audioPath,
		ModelPath: "/models/ggml-small.bin",
		Language:  "ja",
		Task:      domain.TaskTranslate,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !hasArg(whisperArgs, "-tr") {
		t.Fatalf("translate must pass -tr, args=%v", whisperArgs)
	}
	if got := argValue(whisperArgs, "-l"); got != "ja" {
		t.Fatalf("language arg = %q, want ja", got)
	}
	if result.Transcription.Language != "ja" {
		t.Fatalf("language = %q, want requested ja", result.Transcription.Language)
	}
	if len(result.Transcription.Segments) != 0 || result.Transcription.Text != "" {
		t.Fatalf("expected empty transcript, got %+v", result.Transcription)
	}
}

// TestPipelineRunFFmpegFailureReturnsPreprocessingError checks conversion error path.
func TestPipelineRunFFmpegFailureReturnsPreprocessingError(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "clip.mp4")
	mustWriteFile(t, audioPath, "media")

	var cleaned string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
			return command.Result{
				Stderr:   "ffmpeg failed",
				ExitCode: 1,
			}, errors.New("exit status 1")
		},
	}

	pipeline := NewPipelineForTests(
		"ffmpeg",
		"whisper.cpp",
		runner,
		os.MkdirTemp,
		func(path string) error {
			cleaned = path
			return os.RemoveAll(path)
		},
		InspectWAV,
	)

	_, err := pipeline.Run(context.Background(), Request{
		AudioPath: audioPath,
		ModelPath: "/models/model.bin",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *command.StageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *command.StageError", err)
	}
	if sErr.Stage != StagePreprocessing {
		t.Fatalf("stage = %s, want preprocessing", sErr.Stage)
	}
	if sErr.Log.Command != "ffmpeg" {
		t.Fatalf("command = %q, want ffmpeg", sErr.Log.Command)
	}
	if sErr.Log.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", sErr.Log.ExitCode)
	}
	if strings.TrimSpace(cleaned) == "" {
		t.Fatal("expected temporary directory cleanup")
	}
}

// TestPipelineRunRejectsWrongSampleRate checks WAV verification.
func TestPipelineRunRejectsWrongSampleRate(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "clip.mp3")
	mustWriteFile(t, audioPath, "media")

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
			if name == "ffmpeg" {
				writeTestWAV(t, args[len(args)-1], 44100, 2)
				return command.Result{}, nil
			}
			t.Fatal("whisper must not run on unusable audio")
			return command.Result{}, nil
		},
	}

	pipeline := NewPipelineForTests("ffmpeg", "whisper.cpp", runner, os.MkdirTemp, os.RemoveAll, InspectWAV)
	_, err := pipeline.Run(context.Background(), Request{AudioPath: audioPath, ModelPath: "/m.bin"})

	var sErr *command.StageError
	if !errors.As(err, &sErr) || sErr.Stage != StagePreprocessing {
		t.Fatalf("error = %v, want preprocessing stage error", err)
	}
}

// TestPipelineRunWhisperFailureCleansTempDir checks failure cleanup path.
func TestPipelineRunWhisperFailureCleansTempDir(t *testing.T) {
	root := t.TempDir()
	audioPath := filepath.Join(root, "clip.mp4")
	mustWriteFile(t, audioPath, "media")

	var tempDir string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
			if name == "ffmpeg" {
				outPath := args[len(args)-1]
				tempDir = filepath.Dir(outPath)
				mustWriteFile(t, outPath, "wav")
				return command.Result{}, nil
			}
			return command.Result{
				Stderr:   "failed to load model",
				ExitCode: 1,
			}, errors.New("exit status 1")
		},
	}

	pipeline := NewPipelineForTests("ffmpeg", "whisper.cpp", runner, os.MkdirTemp, os.RemoveAll, func(string) error { return nil })
	_, err := pipeline.Run(context.Background(), Request{
		AudioPath: audioPath,
		ModelPath: "/models/model.bin",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *command.StageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *command.StageError", err)
	}
	if sErr.Stage != StageTranscribing {
		t.Fatalf("stage = %s, want transcribing", sErr.Stage)
	}
	if sErr.Log.Command != "whisper.cpp" {
		t.Fatalf("command = %q, want whisper.cpp", sErr.Log.Command)
	}
	if _, statErr := os.Stat(tempDir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("temp dir should be removed on failure, stat err = %v", statErr)
	}
}

// TestPipelineRunMissingAudio fails before any command runs.
func TestPipelineRunMissingAudio(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (command.Result, error) {
			t.Fatalf("unexpected command %s", name)
			return command.Result{}, nil
		},
	}

	pipeline := NewPipelineForTests("ffmpeg", "whisper.cpp", runner, os.MkdirTemp, os.RemoveAll, InspectWAV)
	_, err := pipeline.Run(context.Background(), Request{
		AudioPath: filepath.Join(t.TempDir(), "absent.mp3"),
		ModelPath: "/m.bin",
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want not-exist", err)
	}
}

// TestBuildFFmpegArgs verifies deterministic ffmpeg command arguments.
func TestBuildFFmpegArgs(t *testing.T) {
	args := buildFFmpegArgs("/in.mp4", "/tmp/out.wav")
	want := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", "/in.mp4",
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"/tmp/out.wav",
	}

	if len(args) != len(want) {
		t.Fatalf("args len = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

// TestParseWhisperJSONOrdersSegments keeps segments sorted by start time.
func TestParseWhisperJSONOrdersSegments(t *testing.T) {
	doc := `{"params":{"language":"de"},"transcription":[
		{"offsets":{"from":3000,"to":4000},"text":" zwei"},
		{"offsets":{"from":1000,"to":2000},"text":" eins"}
	]}`
	tr, err := parseWhisperJSON([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tr.Segments[0].Text != " eins" || tr.Segments[1].Text != " zwei" {
		t.Fatalf("segments = %+v", tr.Segments)
	}
	if tr.Text != " eins zwei" {
		t.Fatalf("text = %q", tr.Text)
	}
	if tr.Language != "de" {
		t.Fatalf("language = %q, want de from params", tr.Language)
	}

	if _, err := parseWhisperJSON([]byte(`{"transcription":[{"offsets":{"from":5,"to":1}}]}`)); err == nil {
		t.Fatal("expected error for inverted offsets")
	}
	if _, err := parseWhisperJSON([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

// writeTestWAV writes a short silent PCM WAV file.
func writeTestWAV(t *testing.T, path string, sampleRate, channels int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, sampleRate/10*channels),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

// mustWriteFile creates parent directory and writes file content.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// argValue returns value for key-style CLI args.
func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

// hasArg reports whether args include the target flag.
func hasArg(args []string, key string) bool {
	for _, arg := range args {
		if arg == key {
			return true
		}
	}
	return false
}
