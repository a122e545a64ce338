package config

import (
	"bytes"
	"errors"
	"testing"

	"audiototext/internal/domain"
)

// TestParseArgsFlagsAfterPositionals mirrors the documented invocation order.
func TestParseArgsFlagsAfterPositionals(t *testing.T) {
	var out bytes.Buffer
	opts, err := ParseArgs("transcribe", []string{
		"https://example.com/watch?v=1", "/out", "job-1",
		"--model", "base", "--language", "de", "--task", "translate",
	}, &out)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}

	want := domain.Job{
		InputSource: "https://example.com/watch?v=1",
		OutputDir:   "/out",
		ID:          "job-1",
		ModelName:   "base",
		Language:    "de",
		Task:        domain.TaskTranslate,
	}
	if opts.Job != want {
		t.Fatalf("job = %+v, want %+v", opts.Job, want)
	}
}

// TestParseArgsInterspersedFlags accepts flags between positionals.
func TestParseArgsInterspersedFlags(t *testing.T) {
	var out bytes.Buffer
	opts, err := ParseArgs("transcribe", []string{
		"--model=tiny", "in.mp3", "--task", "transcribe", "out", "j1",
	}, &out)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.Job.InputSource != "in.mp3" || opts.Job.OutputDir != "out" || opts.Job.ID != "j1" {
		t.Fatalf("positionals = %+v", opts.Job)
	}
	if opts.Job.ModelName != "tiny" {
		t.Fatalf("model = %q, want tiny", opts.Job.ModelName)
	}
}

// TestParseArgsDefaults checks task default and empty model before settings apply.
func TestParseArgsDefaults(t *testing.T) {
	var out bytes.Buffer
	opts, err := ParseArgs("transcribe", []string{"in.wav", "out", "j1"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if opts.Job.Task != domain.TaskTranscribe {
		t.Fatalf("task = %q, want transcribe", opts.Job.Task)
	}
	if opts.Job.ModelName != "" || opts.Job.Language != "" {
		t.Fatalf("model/language should be unset, got %+v", opts.Job)
	}
}

// TestParseArgsMissingPositionals reports a usage error.
func TestParseArgsMissingPositionals(t *testing.T) {
	var out bytes.Buffer
	_, err := ParseArgs("transcribe", []string{"in.wav", "out"}, &out)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("error = %v, want ErrUsage", err)
	}
	if out.Len() == 0 {
		t.Fatal("expected usage text to be printed")
	}
}

// TestParseArgsDoctorNeedsNoPositionals allows the environment check alone.
func TestParseArgsDoctorNeedsNoPositionals(t *testing.T) {
	var out bytes.Buffer
	opts, err := ParseArgs("transcribe", []string{"--doctor"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !opts.Doctor {
		t.Fatal("expected doctor mode")
	}
}

// TestParseArgsWriteConfigNeedsNoPositionals allows writing settings alone.
func TestParseArgsWriteConfigNeedsNoPositionals(t *testing.T) {
	var out bytes.Buffer
	opts, err := ParseArgs("transcribe", []string{"--write-config", "--config", "/tmp/c.toml"}, &out)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !opts.WriteConfig || opts.ConfigPath != "/tmp/c.toml" {
		t.Fatalf("opts = %+v", opts)
	}
}

// TestApplySettingsFillsModelAndLanguage checks settings fallbacks.
func TestApplySettingsFillsModelAndLanguage(t *testing.T) {
	settings := DefaultSettings()
	settings.DefaultModel = "medium"

	job := ApplySettings(domain.Job{Task: domain.TaskTranscribe}, settings)
	if job.ModelName != "medium" {
		t.Fatalf("model = %q, want medium", job.ModelName)
	}
	if job.Language != "" {
		t.Fatalf("language = %q, want auto-detect (empty)", job.Language)
	}

	job = ApplySettings(domain.Job{ModelName: "tiny", Language: "fr"}, settings)
	if job.ModelName != "tiny" || job.Language != "fr" {
		t.Fatalf("explicit values overridden: %+v", job)
	}
}

// TestValidatorJob covers task and job id rules.
func TestValidatorJob(t *testing.T) {
	valid := domain.Job{
		InputSource: "in.mp3",
		OutputDir:   "out",
		ID:          "3f2a9c1e-7b4d-4e0a-9c55-1a2b3c4d5e6f",
		ModelName:   "small",
		Task:        domain.TaskTranscribe,
	}

	v := NewValidator()
	if err := v.Job(valid); err != nil {
		t.Fatalf("valid job rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*domain.Job)
	}{
		{name: "unknown task", mutate: func(j *domain.Job) { j.Task = "summarize" }},
		{name: "empty id", mutate: func(j *domain.Job) { j.ID = "" }},
		{name: "path separator", mutate: func(j *domain.Job) { j.ID = "../escape" }},
		{name: "nested path", mutate: func(j *domain.Job) { j.ID = "a/b" }},
		{name: "leading dot", mutate: func(j *domain.Job) { j.ID = ".hidden" }},
		{name: "missing output dir", mutate: func(j *domain.Job) { j.OutputDir = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := valid
			tc.mutate(&job)
			err := v.Job(job)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("error = %v, want ErrUsage", err)
			}
		})
	}
}

// TestNewLoggerRejectsUnknownFormat checks logger option validation.
func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	var out bytes.Buffer
	if _, err := NewLogger("info", "xml", &out); err == nil {
		t.Fatal("expected format error")
	}
	if _, err := NewLogger("loud", "text", &out); err == nil {
		t.Fatal("expected level error")
	}

	log, err := NewLogger("debug", "json", &out)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	log.WithField("job_id", "j1").Info("hello")
	if !bytes.Contains(out.Bytes(), []byte(`"job_id":"j1"`)) {
		t.Fatalf("json output = %s", out.String())
	}
}
