package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ErrUnknownModel is returned for names that are neither a path nor a catalog ID.
var ErrUnknownModel = errors.New("unknown model")

// ErrModelNotDownloaded is returned when a catalog model is absent and downloads are disabled.
var ErrModelNotDownloaded = errors.New("model not downloaded")

const modelDownloadTimeout = 45 * time.Minute

// Resolver maps a model name to a ggml weights file.
type Resolver struct {
	modelsDir    string
	autoDownload bool
	download     func(ctx context.Context, destinationPath, sourceURL string) error
	stat         func(name string) (os.FileInfo, error)
	readDir      func(name string) ([]os.DirEntry, error)
	log          logrus.FieldLogger
}

// NewResolver builds a resolver that stores catalog models in modelsDir.
func NewResolver(modelsDir string, autoDownload bool, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		modelsDir:    modelsDir,
		autoDownload: autoDownload,
		download: func(ctx context.Context, dst, src string) error {
			ctx, cancel := context.WithTimeout(ctx, modelDownloadTimeout)
			defer cancel()
			return DownloadURLToFile(ctx, dst, src)
		},
		stat:    os.Stat,
		readDir: os.ReadDir,
		log:     log,
	}
}

// NewResolverForTests builds a resolver with an injectable downloader.
func NewResolverForTests(
	modelsDir string,
	autoDownload bool,
	download func(ctx context.Context, destinationPath, sourceURL string) error,
	log logrus.FieldLogger,
) *Resolver {
	r := NewResolver(modelsDir, autoDownload, log)
	r.download = download
	return r
}

// Resolve returns the weights file for name. name may be a model file, a
// directory of model files, or a catalog ID such as "small".
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("model name is required")
	}

	if looksLikePath(trimmed) {
		return r.resolvePath(trimmed)
	}

	model, found := Lookup(trimmed)
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, trimmed)
	}

	target := filepath.Join(r.modelsDir, model.FileName)
	if info, err := r.stat(target); err == nil && !info.IsDir() {
		return target, nil
	}

	if !r.autoDownload {
		return "", fmt.Errorf("%w: %s (expected %s)", ErrModelNotDownloaded, model.ID, target)
	}

	r.log.WithFields(logrus.Fields{
		"model": model.ID,
		"size":  model.SizeLabel,
		"path":  target,
	}).Info("Downloading whisper model")
	if err := r.download(ctx, target, model.URL); err != nil {
		return "", fmt.Errorf("download model %s: %w", model.ID, err)
	}
	return target, nil
}

// resolvePath returns model file path from file or directory input.
func (r *Resolver) resolvePath(modelPath string) (string, error) {
	info, err := r.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s: %w", modelPath, err)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := r.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s: %w", modelPath, err)
	}

	modelNames := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		return entry.Name(), !entry.IsDir() && IsModelFile(entry.Name())
	})
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

func looksLikePath(name string) bool {
	return strings.ContainsRune(name, '/') ||
		strings.ContainsRune(name, filepath.Separator) ||
		IsModelFile(name)
}
