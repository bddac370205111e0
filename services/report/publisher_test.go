package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

type fakeObjects struct {
	uploads  []string
	presigns []string
	url      string

	uploadErr  error
	presignErr error
}

func (f *fakeObjects) UploadFile(ctx context.Context, bucket, key, path, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if contentType != "application/pdf" {
		return errors.New("unexpected content type " + contentType)
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeObjects) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.presigns = append(f.presigns, key)
	return f.url, nil
}

type fakeArtifacts struct {
	created []PublishedArtifact
	err     error
}

func (f *fakeArtifacts) CreateArtifact(ctx context.Context, artifact PublishedArtifact) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, artifact)
	return nil
}

func (f *fakeArtifacts) RecentArtifacts(ctx context.Context, limit int) ([]PublishedArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.created) {
		return f.created[:limit], nil
	}
	return f.created, nil
}

type fakeNotifier struct {
	sent    [][]byte
	headers []nats.Header
	err     error
}

func (f *fakeNotifier) Publish(ctx context.Context, data []byte, header nats.Header) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	f.headers = append(f.headers, header)
	return nil
}

func tempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write temp pdf: %v", err)
	}
	return path
}

func TestPublishHappyPath(t *testing.T) {
	objects := &fakeObjects{url: "https://bucket.example/signed"}
	artifacts := &fakeArtifacts{}
	notifier := &fakeNotifier{}
	p := NewPublisher("reports", objects, artifacts, notifier, zerolog.Nop())

	local := tempPDF(t)
	key := "checklists/t1/20240301_103000.pdf"

	url, err := p.Publish(context.Background(), local, key, JobContext{
		Type:       ReportTypeChecklist,
		TemplateID: "t1",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if url != "https://bucket.example/signed" {
		t.Fatalf("Publish() url = %q", url)
	}

	if len(objects.uploads) != 1 || objects.uploads[0] != key {
		t.Fatalf("uploads = %v, want [%s]", objects.uploads, key)
	}

	if len(artifacts.created) != 1 {
		t.Fatalf("artifacts created = %d, want 1", len(artifacts.created))
	}
	artifact := artifacts.created[0]
	if artifact.Status != ArtifactStatusActive {
		t.Fatalf("artifact status = %q, want %q", artifact.Status, ArtifactStatusActive)
	}
	if artifact.Name != "20240301_103000.pdf" {
		t.Fatalf("artifact name = %q", artifact.Name)
	}
	if got := artifact.ExpiresAt.Sub(artifact.IssuedAt); got != 7*24*time.Hour {
		t.Fatalf("artifact lifetime = %v, want 168h", got)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(notifier.sent))
	}
	var msg struct {
		URL        string `json:"url"`
		Source     string `json:"source"`
		Type       string `json:"type"`
		TemplateID string `json:"template_id"`
	}
	if err := json.Unmarshal(notifier.sent[0], &msg); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if msg.URL != url || msg.Source != "report-service" || msg.Type != "checklist" || msg.TemplateID != "t1" {
		t.Fatalf("notification = %+v", msg)
	}
	if got := notifier.headers[0].Get("source"); got != "report-service" {
		t.Fatalf("notification source header = %q", got)
	}
	if got := notifier.headers[0].Get("type"); got != "s3-upload" {
		t.Fatalf("notification type header = %q", got)
	}

	if _, err := os.Stat(local); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file still present after publish (stat err = %v)", err)
	}
}

func TestPublishFailsFastWithoutBucket(t *testing.T) {
	objects := &fakeObjects{url: "https://bucket.example/signed"}
	p := NewPublisher("", objects, &fakeArtifacts{}, &fakeNotifier{}, zerolog.Nop())

	_, err := p.Publish(context.Background(), tempPDF(t), "checklists/t1/x.pdf", JobContext{Type: ReportTypeChecklist, TemplateID: "t1"})
	if !errors.Is(err, ErrBucketNotConfigured) {
		t.Fatalf("Publish() error = %v, want ErrBucketNotConfigured", err)
	}
	if len(objects.uploads) != 0 {
		t.Fatalf("upload attempted without bucket: %v", objects.uploads)
	}
}

func TestPublishStopsWhenRecordingFails(t *testing.T) {
	objects := &fakeObjects{url: "https://bucket.example/signed"}
	artifacts := &fakeArtifacts{err: errors.New("db down")}
	notifier := &fakeNotifier{}
	p := NewPublisher("reports", objects, artifacts, notifier, zerolog.Nop())

	local := tempPDF(t)
	_, err := p.Publish(context.Background(), local, "checklists/t1/x.pdf", JobContext{Type: ReportTypeChecklist, TemplateID: "t1"})
	if err == nil {
		t.Fatal("Publish() succeeded despite record failure")
	}

	// The upload already happened: the object is orphaned in the bucket, no
	// notification goes out, and the local file is kept.
	if len(objects.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(objects.uploads))
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("notification sent despite record failure")
	}
	if _, err := os.Stat(local); err != nil {
		t.Fatalf("temp file removed despite failed publish: %v", err)
	}
}

func TestPublishSurvivesNotificationFailure(t *testing.T) {
	objects := &fakeObjects{url: "https://bucket.example/signed"}
	artifacts := &fakeArtifacts{}
	notifier := &fakeNotifier{err: errors.New("queue down")}
	p := NewPublisher("reports", objects, artifacts, notifier, zerolog.Nop())

	local := tempPDF(t)
	url, err := p.Publish(context.Background(), local, "inspections/i1/a1/x.pdf", JobContext{
		Type:         ReportTypeInspection,
		InspectionID: "i1",
		AssetID:      "a1",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if url == "" {
		t.Fatal("Publish() returned empty url")
	}
	if len(artifacts.created) != 1 {
		t.Fatalf("artifacts created = %d, want 1", len(artifacts.created))
	}
	if _, statErr := os.Stat(local); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("temp file not removed (stat err = %v)", statErr)
	}
}

func TestPublishPropagatesUploadFailure(t *testing.T) {
	objects := &fakeObjects{uploadErr: errors.New("no route to storage")}
	artifacts := &fakeArtifacts{}
	p := NewPublisher("reports", objects, artifacts, &fakeNotifier{}, zerolog.Nop())

	_, err := p.Publish(context.Background(), tempPDF(t), "checklists/t1/x.pdf", JobContext{Type: ReportTypeChecklist, TemplateID: "t1"})
	if err == nil {
		t.Fatal("Publish() succeeded despite upload failure")
	}
	if len(artifacts.created) != 0 {
		t.Fatalf("artifact recorded despite upload failure")
	}
}
