package domain

// WhisperModelOption is one ggml Whisper model known to the catalog.
// Downloaded and LocalPath are filled in when the file is found locally.
type WhisperModelOption struct {
	ID           string
	FileName     string
	URL          string
	SizeLabel    string
	Multilingual bool

	Downloaded bool
	LocalPath  string
}
