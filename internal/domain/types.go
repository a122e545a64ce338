package domain

// JobStatus tracks each pipeline stage for a single transcription job.
type JobStatus string

const (
	JobStatusIdle          JobStatus = "idle"
	JobStatusDownloading   JobStatus = "downloading"
	JobStatusPreprocessing JobStatus = "preprocessing"
	JobStatusTranscribing  JobStatus = "transcribing"
	JobStatusExporting     JobStatus = "exporting"
	JobStatusDone          JobStatus = "done"
	JobStatusFailed        JobStatus = "failed"
	JobStatusCancelled     JobStatus = "cancelled"
)

// Task selects whisper's transcription or translation-to-English mode.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Settings contains user-level defaults loaded from the settings file.
type Settings struct {
	ModelsDir          string `toml:"models_dir"`
	DefaultModel       string `toml:"default_model"`
	Language           string `toml:"language"`
	AutoDownloadModels bool   `toml:"auto_download_models"`
	FFmpegPath         string `toml:"ffmpeg_path"`
	WhisperPath        string `toml:"whisper_path"`
	YtDlpPath          string `toml:"ytdlp_path"`
	LogLevel           string `toml:"log_level"`
	LogFormat          string `toml:"log_format"`
}

// Job is one validated transcription request built from command-line arguments.
type Job struct {
	InputSource string `validate:"required"`
	OutputDir   string `validate:"required"`
	ID          string `validate:"required,jobid"`
	ModelName   string `validate:"required"`
	Language    string
	Task        Task `validate:"required,oneof=transcribe translate"`
}

// JobState stores the current job identity and lifecycle status.
type JobState struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}

// Segment is a timed fragment of the transcript. Offsets are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptionResult is the full transcript plus its ordered segments.
type TranscriptionResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}
