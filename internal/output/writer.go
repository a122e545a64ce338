package output

import (
	"fmt"
	"os"
	"path/filepath"

	"audiototext/internal/domain"
)

// Files are the paths written for one job.
type Files struct {
	Text        string
	Timestamped string
	SRT         string
	VTT         string
}

// Paths returns the four output paths for jobID in dir.
func Paths(dir, jobID string) Files {
	return Files{
		Text:        filepath.Join(dir, jobID+".txt"),
		Timestamped: filepath.Join(dir, jobID+"_timestamped.txt"),
		SRT:         filepath.Join(dir, jobID+".srt"),
		VTT:         filepath.Join(dir, jobID+".vtt"),
	}
}

// All lists the paths in write order.
func (f Files) All() []string {
	return []string{f.Text, f.Timestamped, f.SRT, f.VTT}
}

// Writer writes the output file set of a job.
type Writer struct {
	mkdirAll  func(path string, perm os.FileMode) error
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// NewWriter builds a writer backed by the local filesystem.
func NewWriter() *Writer {
	return &Writer{
		mkdirAll:  os.MkdirAll,
		writeFile: os.WriteFile,
	}
}

// Write renders result into dir as {jobID}.txt, {jobID}_timestamped.txt,
// {jobID}.srt and {jobID}.vtt. Existing files are overwritten. result is
// never modified.
func (w *Writer) Write(result domain.TranscriptionResult, dir, jobID string) (Files, error) {
	if err := w.mkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output directory %s: %w", dir, err)
	}

	files := Paths(dir, jobID)
	outputs := []struct {
		path    string
		content string
	}{
		{files.Text, PlainText(result)},
		{files.Timestamped, TimestampedText(result.Segments)},
		{files.SRT, SRT(result.Segments)},
		{files.VTT, VTT(result.Segments)},
	}

	for _, out := range outputs {
		if err := w.writeFile(out.path, []byte(out.content), 0o644); err != nil {
			return Files{}, fmt.Errorf("write %s: %w", out.path, err)
		}
	}
	return files, nil
}
