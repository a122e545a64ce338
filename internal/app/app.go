package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"audiototext/internal/command"
	"audiototext/internal/domain"
	"audiototext/internal/jobs"
	"audiototext/internal/models"
	"audiototext/internal/output"
	"audiototext/internal/source"
	"audiototext/internal/transcribe"
)

// audioFetcher downloads remote inputs and removes what it downloaded.
type audioFetcher interface {
	Fetch(ctx context.Context, url, outputDir, jobID string) (source.Fetched, error)
	Cleanup(outputDir, jobID string) error
}

// modelResolver turns a model name into a weights file on disk.
type modelResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// pipelineRunner isolates the transcription pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// resultWriter writes the output file set of a job.
type resultWriter interface {
	Write(result domain.TranscriptionResult, dir, jobID string) (output.Files, error)
}

// Outcome summarizes a successful job.
type Outcome struct {
	RunID         string
	Files         output.Files
	Language      string
	Segments      int
	AudioDuration time.Duration
	Timings       []jobs.StageTiming
}

// App wires the fetcher, model resolver, pipeline and writer for one job run.
type App struct {
	Fetcher  audioFetcher
	Models   modelResolver
	Pipeline pipelineRunner
	Writer   resultWriter
	Jobs     *jobs.Manager
	Events   *jobs.EventBus
	Log      logrus.FieldLogger

	stat     func(name string) (os.FileInfo, error)
	newRunID func() string
}

// New builds the production application from settings.
func New(settings domain.Settings, log logrus.FieldLogger) *App {
	a := &App{
		Fetcher:  source.NewFetcher(settings.YtDlpPath, settings.FFmpegPath, log),
		Models:   models.NewResolver(settings.ModelsDir, settings.AutoDownloadModels, log),
		Pipeline: transcribe.NewPipeline(settings.FFmpegPath, settings.WhisperPath),
		Writer:   output.NewWriter(),
		Jobs:     jobs.NewManager(),
		Events:   jobs.NewEventBus(1000),
		Log:      log,
		stat:     os.Stat,
		newRunID: uuid.NewString,
	}
	a.Events.Subscribe(logEvent(log))
	return a
}

// Run executes one job end to end: fetch (URL inputs only), audio check, model
// resolution, transcription and writing. Downloaded audio is removed before
// Run returns, whatever the outcome. Job failures are returned as *JobError.
func (a *App) Run(ctx context.Context, job domain.Job) (outcome Outcome, err error) {
	runID := a.newRunID()
	outcome.RunID = runID
	log := a.Log.WithFields(logrus.Fields{"run_id": runID, "job_id": job.ID})

	kind := source.Classify(job.InputSource)
	first := domain.JobStatusPreprocessing
	if kind == source.KindURL {
		first = domain.JobStatusDownloading
	}
	if err := a.Jobs.Start(job.ID, first); err != nil {
		return outcome, err
	}
	a.publishStatus(runID, job.ID, first, fmt.Sprintf("Job started (%s input)", kind))

	defer func() {
		if err != nil {
			a.fail(ctx, runID, job.ID, err)
		}
	}()

	audioPath := job.InputSource
	if kind == source.KindURL {
		defer a.cleanup(log, runID, job)

		fetched, fetchErr := a.Fetcher.Fetch(ctx, job.InputSource, job.OutputDir, job.ID)
		if fetchErr != nil {
			return outcome, &JobError{Kind: KindDownload, Message: "error downloading audio", Err: fetchErr}
		}
		a.publishLog(runID, job.ID, "Download completed", fetched.Log)
		audioPath = fetched.Path
		outcome.AudioDuration = fetched.Duration
		a.transition(runID, job.ID, domain.JobStatusPreprocessing)
	}

	if err := a.checkAudio(audioPath); err != nil {
		return outcome, &JobError{
			Kind:    KindMissingAudio,
			Message: fmt.Sprintf("audio file not found: %s", audioPath),
			Err:     err,
		}
	}

	log.WithField("model", job.ModelName).Info("Loading whisper model")
	modelPath, err := a.Models.Resolve(ctx, job.ModelName)
	if err != nil {
		return outcome, &JobError{Kind: KindModelLoad, Message: "error loading model", Err: err}
	}

	log.WithFields(logrus.Fields{"audio": audioPath, "model_path": modelPath}).Info("Processing audio")
	result, err := a.Pipeline.Run(ctx, transcribe.Request{
		AudioPath: audioPath,
		ModelPath: modelPath,
		Language:  job.Language,
		Task:      job.Task,
		OnStage: func(stage string) {
			if status, ok := mapStageToStatus(stage); ok {
				a.transition(runID, job.ID, status)
			}
		},
		OnLog: func(cmdLog command.Log) {
			a.publishLog(runID, job.ID, "Command completed", cmdLog)
		},
	})
	if err != nil {
		return outcome, &JobError{Kind: KindTranscription, Message: "error during transcription", Err: err}
	}

	a.transition(runID, job.ID, domain.JobStatusExporting)
	files, err := a.Writer.Write(result.Transcription, job.OutputDir, job.ID)
	if err != nil {
		return outcome, &JobError{Kind: KindTranscription, Message: "error writing transcript", Err: err}
	}

	outcome.Files = files
	outcome.Language = result.Transcription.Language
	outcome.Segments = len(result.Transcription.Segments)

	a.transition(runID, job.ID, domain.JobStatusDone)
	outcome.Timings = a.Jobs.Timings()
	a.Events.Publish(jobs.Event{
		RunID:   runID,
		JobID:   job.ID,
		Type:    jobs.EventTypeResult,
		Status:  domain.JobStatusDone,
		Message: "Transcript exported",
		Files:   files.All(),
	})
	return outcome, nil
}

// checkAudio requires path to name an existing regular file.
func (a *App) checkAudio(path string) error {
	info, err := a.stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, fs.ErrNotExist)
	}
	return nil
}

// cleanup removes downloaded audio; a failure here never fails the job.
func (a *App) cleanup(log logrus.FieldLogger, runID string, job domain.Job) {
	if err := a.Fetcher.Cleanup(job.OutputDir, job.ID); err != nil {
		log.WithError(err).Warn("Failed to remove temporary audio")
		a.Events.Publish(jobs.Event{
			RunID:   runID,
			JobID:   job.ID,
			Type:    jobs.EventTypeError,
			Message: fmt.Sprintf("cleanup temporary files: %v", err),
		})
	}
}

// fail moves the job to failed or cancelled and records the failing command.
func (a *App) fail(ctx context.Context, runID, jobID string, err error) {
	status := domain.JobStatusFailed
	if ctx.Err() != nil {
		status = domain.JobStatusCancelled
	}
	if a.Jobs.IsRunning() {
		var transitionErr error
		if status == domain.JobStatusCancelled {
			transitionErr = a.Jobs.Cancel()
		} else {
			transitionErr = a.Jobs.Transition(status)
		}
		if transitionErr == nil {
			a.publishStatus(runID, jobID, status, "Job "+string(status))
		}
	}

	a.Events.Publish(jobs.Event{
		RunID:   runID,
		JobID:   jobID,
		Type:    jobs.EventTypeError,
		Status:  status,
		Message: err.Error(),
	})
	if cmdLog, ok := FailedCommand(err); ok {
		a.publishLog(runID, jobID, "Failed command", cmdLog)
	}
}

// transition applies a status change and publishes it when accepted.
func (a *App) transition(runID, jobID string, status domain.JobStatus) {
	before := a.Jobs.Current().Status
	if err := a.Jobs.Transition(status); err != nil || before == status {
		return
	}
	message := "Running " + string(status) + " stage"
	if status == domain.JobStatusDone {
		message = "Job completed"
	}
	a.publishStatus(runID, jobID, status, message)
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(runID, jobID string, status domain.JobStatus, message string) {
	a.Events.Publish(jobs.Event{
		RunID:   runID,
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishLog records one external command execution.
func (a *App) publishLog(runID, jobID, message string, cmdLog command.Log) {
	a.Events.Publish(jobs.Event{
		RunID:    runID,
		JobID:    jobID,
		Type:     jobs.EventTypeLog,
		Message:  message,
		Command:  cmdLog.Command,
		Args:     cmdLog.Args,
		ExitCode: cmdLog.ExitCode,
		Stderr:   cmdLog.Stderr,
	})
}

// mapStageToStatus maps pipeline stage names to job statuses.
func mapStageToStatus(stage string) (domain.JobStatus, bool) {
	switch stage {
	case transcribe.StagePreprocessing:
		return domain.JobStatusPreprocessing, true
	case transcribe.StageTranscribing:
		return domain.JobStatusTranscribing, true
	default:
		return "", false
	}
}

// logEvent mirrors status and command events into the process log.
func logEvent(log logrus.FieldLogger) func(jobs.Event) {
	return func(event jobs.Event) {
		entry := log.WithFields(logrus.Fields{
			"run_id": event.RunID,
			"job_id": event.JobID,
			"seq":    event.Seq,
		})
		switch event.Type {
		case jobs.EventTypeStatus:
			entry.WithField("status", event.Status).Info(event.Message)
		case jobs.EventTypeLog:
			entry.WithFields(logrus.Fields{
				"command":   event.Command,
				"exit_code": event.ExitCode,
			}).Debug(event.Message)
		case jobs.EventTypeResult:
			entry.WithField("files", len(event.Files)).Debug(event.Message)
		}
	}
}
