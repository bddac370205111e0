package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	// signedURLTTL is the fixed lifetime of every artifact URL: 7 days.
	signedURLTTL = 7 * 24 * time.Hour

	pdfContentType = "application/pdf"

	// selfSource tags outbound notifications so the worker can recognise and
	// discard messages this service sent itself.
	selfSource = "report-service"

	notificationType = "s3-upload"
)

// ReportType distinguishes the two report flavours in job context and
// notifications.
type ReportType string

const (
	ReportTypeChecklist  ReportType = "checklist"
	ReportTypeInspection ReportType = "inspection"
)

// JobContext carries the identifiers of the job a publish belongs to.
type JobContext struct {
	Type         ReportType
	TemplateID   string
	InspectionID string
	AssetID      string
}

// ObjectStore is the object storage surface the publisher needs. Implemented
// by *s3.Client.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, key, path, contentType string) error
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Notifier publishes outbound queue messages. Implemented by *bus.Queue.
type Notifier interface {
	Publish(ctx context.Context, data []byte, header nats.Header) error
}

// Publisher moves a rendered PDF into durable storage: upload, sign, record,
// notify, clean up. The steps run strictly in order and there is no rollback:
// if recording fails after the upload succeeded, the object stays in the
// bucket orphaned but reachable.
type Publisher struct {
	bucket    string
	objects   ObjectStore
	artifacts ArtifactStore
	queue     Notifier
	log       zerolog.Logger
}

// NewPublisher wires a Publisher. An empty bucket is allowed here; it only
// fails when a publish is attempted.
func NewPublisher(bucket string, objects ObjectStore, artifacts ArtifactStore, queue Notifier, log zerolog.Logger) *Publisher {
	return &Publisher{
		bucket:    bucket,
		objects:   objects,
		artifacts: artifacts,
		queue:     queue,
		log:       log,
	}
}

type notification struct {
	URL          string     `json:"url"`
	GeneratedAt  string     `json:"generated_at"`
	ExpiresAt    string     `json:"expires_at"`
	Source       string     `json:"source"`
	Type         ReportType `json:"type,omitempty"`
	TemplateID   string     `json:"template_id,omitempty"`
	InspectionID string     `json:"inspection_id,omitempty"`
}

// Publish uploads the local PDF under key, generates the 7-day signed URL,
// records the artifact, emits the completion notification, and removes the
// local file. It returns the signed URL.
func (p *Publisher) Publish(ctx context.Context, localPath, key string, job JobContext) (string, error) {
	if p.bucket == "" {
		return "", ErrBucketNotConfigured
	}

	if err := p.objects.UploadFile(ctx, p.bucket, key, localPath, pdfContentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	url, err := p.objects.PresignGet(ctx, p.bucket, key, signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(signedURLTTL)

	artifact := PublishedArtifact{
		ID:        uuid.New(),
		URL:       url,
		Name:      path.Base(key),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Status:    ArtifactStatusActive,
		Meta:      job.meta(),
	}
	if err := p.artifacts.CreateArtifact(ctx, artifact); err != nil {
		// The object is already in the bucket with no record pointing at it.
		return "", fmt.Errorf("record artifact %s: %w", key, err)
	}

	p.notify(ctx, url, issuedAt, expiresAt, job)

	if err := os.Remove(localPath); err != nil {
		return "", fmt.Errorf("remove temp file: %w", err)
	}

	p.log.Info().Str("key", key).Time("expires_at", expiresAt).Msg("artifact published")
	return url, nil
}

// notify emits the completion message. Notification failure never fails the
// publish; the artifact already exists and is recorded.
func (p *Publisher) notify(ctx context.Context, url string, issuedAt, expiresAt time.Time, job JobContext) {
	msg := notification{
		URL:         url,
		GeneratedAt: issuedAt.Format(time.RFC3339),
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Source:      selfSource,
		Type:        job.Type,
	}
	switch job.Type {
	case ReportTypeChecklist:
		msg.TemplateID = job.TemplateID
	case ReportTypeInspection:
		msg.InspectionID = job.InspectionID
	}

	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Error().Err(err).Msg("encode notification")
		return
	}

	header := nats.Header{}
	header.Set("type", notificationType)
	header.Set("source", selfSource)

	if err := p.queue.Publish(ctx, data, header); err != nil {
		p.log.Error().Err(err).Str("url", url).Msg("send notification")
	}
}

func (j JobContext) meta() map[string]any {
	meta := map[string]any{"type": string(j.Type)}
	if j.TemplateID != "" {
		meta["template_id"] = j.TemplateID
	}
	if j.InspectionID != "" {
		meta["inspection_id"] = j.InspectionID
	}
	if j.AssetID != "" {
		meta["asset_id"] = j.AssetID
	}
	return meta
}
