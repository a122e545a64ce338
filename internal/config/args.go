package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"audiototext/internal/domain"
)

// ErrUsage marks argument errors that should print usage and exit with status 2.
var ErrUsage = errors.New("usage error")

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Options is the parsed command line.
type Options struct {
	Job        domain.Job
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Doctor      bool
	ListModels  bool
	WriteConfig bool
}

// ParseArgs parses positionals and flags. Flags may appear anywhere on the
// command line, before or after the three positionals.
func ParseArgs(name string, args []string, out io.Writer) (Options, error) {
	var opts Options
	var task string

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s <input_source> <output_dir> <job_id> [flags]\n", name)
		fmt.Fprintf(out, "       %s --doctor | --list-models | --write-config\n\n", name)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.Job.ModelName, "model", "", "Whisper model name or path (default from settings, \"small\")")
	fs.StringVar(&opts.Job.Language, "language", "", "Language code (default auto-detect)")
	fs.StringVar(&task, "task", string(domain.TaskTranscribe), "Task: transcribe|translate")
	fs.StringVar(&opts.ConfigPath, "config", "", "Settings file (default ~/.audiototext/config.toml)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level override: debug|info|warn|error")
	fs.StringVar(&opts.LogFormat, "log-format", "", "Log format override: text|json")
	fs.BoolVar(&opts.Doctor, "doctor", false, "Check external tools and model directory, then exit")
	fs.BoolVar(&opts.ListModels, "list-models", false, "List catalog models and whether they are downloaded, then exit")
	fs.BoolVar(&opts.WriteConfig, "write-config", false, "Write the effective settings to the settings file, then exit")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, err
		}
		return Options{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	opts.Job.Task = domain.Task(task)
	if opts.Doctor || opts.ListModels || opts.WriteConfig {
		return opts, nil
	}

	if len(positional) != 3 {
		fs.Usage()
		return Options{}, fmt.Errorf("%w: expected 3 positional arguments, got %d", ErrUsage, len(positional))
	}
	opts.Job.InputSource = positional[0]
	opts.Job.OutputDir = positional[1]
	opts.Job.ID = positional[2]
	return opts, nil
}

// parseInterspersed repeatedly parses flags, collecting each non-flag argument.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
}

// ApplySettings fills job fields the command line left empty.
func ApplySettings(job domain.Job, settings domain.Settings) domain.Job {
	if strings.TrimSpace(job.ModelName) == "" {
		job.ModelName = settings.DefaultModel
	}
	if strings.TrimSpace(job.ModelName) == "" {
		job.ModelName = DefaultModel
	}
	if strings.TrimSpace(job.Language) == "" {
		job.Language = settings.Language
	}
	job.Language = NormalizeLanguage(job.Language)
	return job
}

// NormalizeLanguage maps "auto" and empty language to auto-detect (empty).
func NormalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// Validator checks jobs against their struct tags, including the jobid rule.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator with the custom tags registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("jobid", func(fl validator.FieldLevel) bool {
		return jobIDPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Job validates a job and reports every failing field.
func (v *Validator) Job(job domain.Job) error {
	err := v.validate.Struct(job)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrUsage, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "jobid":
		return fmt.Sprintf("%s %q must start with a letter or digit and contain only letters, digits, '.', '_' or '-'", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
