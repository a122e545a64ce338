// Package models resolves Whisper model names to ggml weight files on disk,
// downloading catalog models on first use.
package models

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"audiototext/internal/domain"
)

const huggingFaceBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

func catalogEntry(id, sizeLabel string) domain.WhisperModelOption {
	fileName := "ggml-" + id + ".bin"
	return domain.WhisperModelOption{
		ID:           id,
		FileName:     fileName,
		URL:          huggingFaceBase + fileName,
		SizeLabel:    sizeLabel,
		Multilingual: !strings.HasSuffix(id, ".en"),
	}
}

var whisperModelCatalog = []domain.WhisperModelOption{
	catalogEntry("tiny.en", "~75 MB"),
	catalogEntry("tiny", "~75 MB"),
	catalogEntry("base.en", "~142 MB"),
	catalogEntry("base", "~142 MB"),
	catalogEntry("small.en", "~466 MB"),
	catalogEntry("small", "~466 MB"),
	catalogEntry("medium.en", "~1.5 GB"),
	catalogEntry("medium", "~1.5 GB"),
	catalogEntry("large-v1", "~2.9 GB"),
	catalogEntry("large-v2", "~2.9 GB"),
	catalogEntry("large-v3", "~2.9 GB"),
	catalogEntry("large-v3-turbo", "~1.6 GB"),
}

// aliases maps the short names openai-whisper accepts to catalog IDs.
var aliases = map[string]string{
	"large": "large-v3",
	"turbo": "large-v3-turbo",
}

// Catalog returns the known models, marking those present in modelsDir.
func Catalog(modelsDir string) []domain.WhisperModelOption {
	models := make([]domain.WhisperModelOption, len(whisperModelCatalog))
	copy(models, whisperModelCatalog)
	markDownloadedModels(models, []string{modelsDir})
	return models
}

// Lookup finds a catalog model by ID or alias.
func Lookup(id string) (domain.WhisperModelOption, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if target, ok := aliases[id]; ok {
		id = target
	}
	return lo.Find(whisperModelCatalog, func(m domain.WhisperModelOption) bool {
		return m.ID == id
	})
}

// IsModelFile reports whether name has a ggml/gguf model extension.
func IsModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".bin" || ext == ".gguf"
}

func markDownloadedModels(models []domain.WhisperModelOption, modelDirs []string) {
	for i := range models {
		for _, dir := range modelDirs {
			if strings.TrimSpace(dir) == "" {
				continue
			}
			candidate := filepath.Join(dir, models[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			models[i].Downloaded = true
			models[i].LocalPath = candidate
			break
		}
	}
}
