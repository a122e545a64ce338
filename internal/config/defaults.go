package config

import (
	"os"
	"path/filepath"

	"audiototext/internal/domain"
)

const (
	// DefaultModel is used when neither the command line nor the settings file names a model.
	DefaultModel = "small"
	appDirName   = ".audiototext"
)

// DefaultSettings returns baseline configuration used when no settings file exists.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		ModelsDir:          LocalModelsDir(homeDir()),
		DefaultModel:       DefaultModel,
		Language:           "auto",
		AutoDownloadModels: true,
		FFmpegPath:         "ffmpeg",
		WhisperPath:        "whisper.cpp",
		YtDlpPath:          "yt-dlp",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// DefaultSettingsPath is the settings file consulted when --config is not given.
func DefaultSettingsPath() string {
	return filepath.Join(homeDir(), appDirName, "config.toml")
}

// LocalModelsDir is where catalog models are stored and downloaded to.
func LocalModelsDir(home string) string {
	return filepath.Join(home, appDirName, "models")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// withDefaults fills empty fields from DefaultSettings.
func withDefaults(s domain.Settings) domain.Settings {
	d := DefaultSettings()
	if s.ModelsDir == "" {
		s.ModelsDir = d.ModelsDir
	}
	if s.DefaultModel == "" {
		s.DefaultModel = d.DefaultModel
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	if s.FFmpegPath == "" {
		s.FFmpegPath = d.FFmpegPath
	}
	if s.WhisperPath == "" {
		s.WhisperPath = d.WhisperPath
	}
	if s.YtDlpPath == "" {
		s.YtDlpPath = d.YtDlpPath
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	if s.LogFormat == "" {
		s.LogFormat = d.LogFormat
	}
	return s
}
