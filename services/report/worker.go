package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"reportd/pkg/bus"
)

const (
	// pollWait is how long a single receive blocks waiting for a message.
	pollWait = 20 * time.Second
	// loopDelay paces the polling loop between iterations.
	loopDelay = time.Second

	sourceAttribute = "source"
)

type jobQueue interface {
	Receive(ctx context.Context, wait time.Duration) (*bus.Message, error)
	Delete(msg *bus.Message) error
}

type reportBuilder interface {
	BuildChecklistReport(ctx context.Context, templateID string) (PublishedReport, error)
	BuildInspectionReport(ctx context.Context, inspectionID, versionID, assetID string) (PublishedReport, error)
}

// Worker is the long-lived polling loop that turns queue messages into report
// builds. One worker runs for the lifetime of the process; it never stops on
// transient infrastructure failure.
type Worker struct {
	queue   jobQueue
	reports reportBuilder
	log     zerolog.Logger
	delay   time.Duration
}

// NewWorker creates a Worker over the given queue and report service.
func NewWorker(queue jobQueue, reports reportBuilder, log zerolog.Logger) (*Worker, error) {
	if queue == nil {
		return nil, errors.New("queue is required")
	}
	if reports == nil {
		return nil, errors.New("report builder is required")
	}
	return &Worker{queue: queue, reports: reports, log: log, delay: loopDelay}, nil
}

// Run polls until ctx is cancelled. Receive errors are logged and retried
// after a short delay; they never terminate the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := w.queue.Receive(ctx, pollWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("receive from queue")
		} else if msg != nil {
			w.handle(ctx, msg)
		}

		if err := sleep(ctx, w.delay); err != nil {
			return err
		}
	}
}

// handle processes a single message. The message is deleted after handling
// regardless of dispatch outcome: a malformed or permanently failing job is
// dropped rather than retried forever. Only a panic escaping the handler
// leaves the message undeleted, making it eligible for redelivery.
func (w *Worker) handle(ctx context.Context, msg *bus.Message) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("report job panicked; message left for redelivery")
		}
	}()

	if msg.Header.Get(sourceAttribute) == selfSource {
		w.log.Debug().Msg("ignoring self-originated message")
		w.deleteMessage(msg)
		return
	}

	job := DecodeReportJob(msg.Data)
	switch job.Kind {
	case JobInspection:
		w.log.Info().Str("inspection_id", job.InspectionID).Msg("building inspection report")
		if _, err := w.reports.BuildInspectionReport(ctx, job.InspectionID, job.VersionID, job.AssetID); err != nil {
			w.logBuildFailure(err, "inspection_id", job.InspectionID)
		}
	case JobChecklist:
		w.log.Info().Str("template_id", job.TemplateID).Msg("building checklist report")
		if _, err := w.reports.BuildChecklistReport(ctx, job.TemplateID); err != nil {
			w.logBuildFailure(err, "template_id", job.TemplateID)
		}
	default:
		w.log.Warn().Msg("message does not contain required job fields")
	}

	w.deleteMessage(msg)
}

func (w *Worker) logBuildFailure(err error, idField, idValue string) {
	if IsNotFound(err) {
		w.log.Warn().Str(idField, idValue).Str("reason", err.Error()).Msg("report job found nothing to render")
		return
	}
	w.log.Error().Err(err).Str(idField, idValue).Msg("report job failed")
}

func (w *Worker) deleteMessage(msg *bus.Message) {
	if err := w.queue.Delete(msg); err != nil {
		w.log.Error().Err(err).Msg("delete message")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
