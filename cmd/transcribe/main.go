package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"audiototext/internal/app"
	"audiototext/internal/config"
	"audiototext/internal/diagnostics"
	"audiototext/internal/domain"
	"audiototext/internal/jobs"
	"audiototext/internal/models"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2

	stderrTailBytes = 4096
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdout io.Writer) int {
	opts, err := config.ParseArgs("transcribe", args, stdout)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stdout, err)
		return exitUsage
	}

	settingsPath := opts.ConfigPath
	if settingsPath == "" {
		settingsPath = config.DefaultSettingsPath()
	}
	store := config.NewTOMLStore(settingsPath)
	settings, err := store.Load()
	if err != nil {
		fmt.Fprintf(stdout, "load settings: %v\n", err)
		return exitUsage
	}
	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		settings.LogFormat = opts.LogFormat
	}

	log, err := config.NewLogger(settings.LogLevel, settings.LogFormat, stdout)
	if err != nil {
		fmt.Fprintf(stdout, "configure logging: %v\n", err)
		return exitUsage
	}
	if home, err := os.UserHomeDir(); err == nil {
		if err := config.EnsureLocalBinOnPATH(home); err != nil {
			log.WithError(err).Warn("Cannot add local bin directory to PATH")
		}
	}

	log.WithField("path", store.Path()).Debug("Settings loaded")

	switch {
	case opts.WriteConfig:
		return writeConfig(log, store, settings)
	case opts.Doctor:
		return doctor(stdout, settings)
	case opts.ListModels:
		return listModels(stdout, settings.ModelsDir)
	}

	job := config.ApplySettings(opts.Job, settings)
	if err := config.NewValidator().Job(job); err != nil {
		log.WithError(err).Error("Invalid arguments")
		return exitUsage
	}

	log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"input":  job.InputSource,
		"model":  job.ModelName,
		"task":   job.Task,
	}).Debug("Starting job")

	application := app.New(settings, log)
	outcome, err := application.Run(ctx, job)
	if err != nil {
		reportFailure(log, err)
		dumpEvents(log, application.Events.Since(0))
		return exitFailure
	}

	fields := logrus.Fields{
		"run_id":   outcome.RunID,
		"language": outcome.Language,
		"segments": outcome.Segments,
	}
	if outcome.AudioDuration > 0 {
		fields["audio_duration"] = outcome.AudioDuration.Round(time.Second).String()
	}
	log.WithFields(fields).Info("Transcription complete")
	for _, path := range outcome.Files.All() {
		log.WithField("path", path).Info("Saved output")
	}
	for _, timing := range outcome.Timings {
		log.WithFields(logrus.Fields{
			"stage":    timing.Status,
			"duration": timing.Duration.Round(time.Millisecond).String(),
		}).Debug("Stage finished")
	}
	log.WithField("output_dir", job.OutputDir).Info("Files saved")
	return exitOK
}

// reportFailure logs a job failure. Transcription failures also get the full
// error chain and the stderr of the command that failed.
func reportFailure(log logrus.FieldLogger, err error) {
	kind, ok := app.KindOf(err)
	if !ok {
		log.WithError(err).Error("Job failed")
		return
	}

	entry := log.WithField("kind", kind)
	if errors.Is(err, context.Canceled) {
		entry.Warn("Job cancelled")
	}
	if kind != app.KindTranscription {
		entry.Error(err.Error())
		return
	}

	for depth, msg := range app.Chain(err) {
		entry.WithField("depth", depth).Error(msg)
	}
	if cmdLog, ok := app.FailedCommand(err); ok {
		entry.WithFields(logrus.Fields{
			"command":   cmdLog.Command,
			"exit_code": cmdLog.ExitCode,
		}).Error("Command stderr:\n" + cmdLog.Tail(stderrTailBytes))
	}
}

// dumpEvents replays the job's event history at debug level.
func dumpEvents(log logrus.FieldLogger, events []jobs.Event) {
	for _, event := range events {
		log.WithFields(logrus.Fields{
			"seq":    event.Seq,
			"type":   event.Type,
			"status": event.Status,
		}).Debug(event.Message)
	}
}

// writeConfig saves the effective settings, including command-line log
// overrides, so they can be edited by hand.
func writeConfig(log logrus.FieldLogger, store *config.TOMLStore, settings domain.Settings) int {
	if err := store.Save(settings); err != nil {
		log.WithError(err).Error("Cannot write settings")
		return exitFailure
	}
	log.WithField("path", store.Path()).Info("Settings written")
	return exitOK
}

func doctor(out io.Writer, settings domain.Settings) int {
	report := diagnostics.NewChecker().Run(settings)
	if err := diagnostics.WriteReport(out, report); err != nil {
		return exitFailure
	}
	if report.HasFailures {
		return exitFailure
	}
	return exitOK
}

func listModels(out io.Writer, modelsDir string) int {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tSIZE\tLANGUAGES\tSTATUS")
	for _, m := range models.Catalog(modelsDir) {
		langs := "english"
		if m.Multilingual {
			langs = "multilingual"
		}
		status := "not downloaded"
		if m.Downloaded {
			status = m.LocalPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.SizeLabel, langs, status)
	}
	if err := tw.Flush(); err != nil {
		return exitFailure
	}
	fmt.Fprintf(out, "Models directory: %s\n", strings.TrimSpace(modelsDir))
	return exitOK
}
