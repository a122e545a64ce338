package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/samber/lo"

	"audiototext/internal/domain"
	"audiototext/internal/models"
)

// Checker validates external tools and the models directory.
type Checker struct {
	lookPath   func(string) (string, error)
	readDir    func(string) ([]os.DirEntry, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		readDir:    os.ReadDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", settings.FFmpegPath, "Install ffmpeg or set ffmpeg_path in the settings file."),
		c.checkTool("whisper.cpp", settings.WhisperPath, "Build whisper.cpp and set whisper_path to its CLI binary."),
		c.checkTool("yt-dlp", settings.YtDlpPath, "Install yt-dlp (needed for URL inputs) or set ytdlp_path."),
		c.checkModelsDir(settings.ModelsDir, settings.AutoDownloadModels),
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: lo.SomeBy(items, func(item domain.DiagnosticItem) bool {
			return item.Status == domain.DiagnosticStatusFail
		}),
		Items: items,
	}
}

// checkTool verifies a configured executable resolves, either as a path or on PATH.
func (c *Checker) checkTool(name, configured, hint string) domain.DiagnosticItem {
	target := strings.TrimSpace(configured)
	if target == "" {
		target = name
	}

	path, err := c.lookPath(target)
	if err != nil {
		return domain.DiagnosticItem{
			ID:      "tool_" + name,
			Name:    name,
			Status:  domain.DiagnosticStatusFail,
			Message: fmt.Sprintf("Tool not found: %s", target),
			Hint:    hint,
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_" + name,
		Name:    name,
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkModelsDir passes when the directory holds a model file, or when models
// can be downloaded into it on demand.
func (c *Checker) checkModelsDir(modelsDir string, autoDownload bool) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "models_dir",
		Name: "Models directory",
	}

	if strings.TrimSpace(modelsDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Models directory is empty."
		item.Hint = "Set models_dir in the settings file."
		return item
	}

	entries, err := c.readDir(modelsDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot read models directory: %s", modelsDir)
		item.Hint = "Check permissions for the models directory."
		return item
	}

	found := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		return entry.Name(), !entry.IsDir() && models.IsModelFile(entry.Name())
	})
	if len(found) > 0 {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("%d model file(s) in %s", len(found), modelsDir)
		return item
	}

	if !autoDownload {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No model files found in %s and auto-download is disabled", modelsDir)
		item.Hint = "Place a ggml .bin or .gguf model in this directory or enable auto_download_models."
		return item
	}

	if err := c.checkWritable(modelsDir); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Models directory is not writable: %s", modelsDir)
		item.Hint = "Choose a writable models_dir so models can be downloaded."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("No models yet; they will be downloaded to %s on first use", modelsDir)
	return item
}

// checkWritable creates the directory if needed and probes it with a temp file.
func (c *Checker) checkWritable(dir string) error {
	if err := c.mkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)
	return nil
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	readDir func(string) ([]os.DirEntry, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		readDir:    readDir,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
