package config

import (
	"os"
	"path/filepath"
)

// LocalBinDir holds user-installed helper binaries (whisper.cpp builds, yt-dlp).
func LocalBinDir(home string) string {
	return filepath.Join(home, appDirName, "bin")
}

// EnsureLocalBinOnPATH prepends LocalBinDir to PATH when it exists and is not
// already listed, so tools installed there resolve by name.
func EnsureLocalBinOnPATH(home string) error {
	binDir := LocalBinDir(home)
	info, err := os.Stat(binDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}
