package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"reportd/pkg/pdf"
	"reportd/pkg/render"
)

// storageKeyStamp is the sortable, second-resolution timestamp embedded in
// storage keys so repeated reports for the same template never overwrite.
const storageKeyStamp = "20060102_150405"

// PublishedReport is the successful outcome of a report build.
type PublishedReport struct {
	URL string `json:"url"`
}

type documentSource interface {
	ChecklistDocument(ctx context.Context, templateID string) (*ChecklistDocument, error)
	InspectionDocument(ctx context.Context, inspectionID, versionID, assetID string) (*ChecklistDocument, error)
}

type artifactPublisher interface {
	Publish(ctx context.Context, localPath, key string, job JobContext) (string, error)
}

type htmlRenderer interface {
	Render(name string, data any) (string, error)
}

// Service chains assembly, rendering, and publishing for the two report
// operations, and exposes them over HTTP and to the queue worker.
type Service struct {
	docs      documentSource
	renderer  htmlRenderer
	publisher artifactPublisher
	artifacts ArtifactStore
	writePDF  func(html, path string) error
	log       zerolog.Logger
}

// New initialises the report service from its external dependencies.
func New(store *Store, renderer *render.Engine, cfg Config, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.DB == nil {
		return nil, errors.New("store DB pool is required")
	}
	if store.ORM == nil {
		return nil, errors.New("store ORM is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}

	artifacts, err := NewArtifactStore(store.ORM)
	if err != nil {
		return nil, err
	}

	return &Service{
		docs:      NewAssembler(store.DB),
		renderer:  renderer,
		publisher: NewPublisher(cfg.Bucket, store.S3, artifacts, store.Queue, log),
		artifacts: artifacts,
		writePDF:  pdf.WriteFile,
		log:       log,
	}, nil
}

// BuildChecklistReport renders the latest version of a template as a blank
// checklist PDF and publishes it. It blocks until the artifact is published.
func (s *Service) BuildChecklistReport(ctx context.Context, templateID string) (PublishedReport, error) {
	doc, err := s.docs.ChecklistDocument(ctx, templateID)
	if err != nil {
		return PublishedReport{}, err
	}

	html, err := s.renderer.Render("checklist.tmpl", doc)
	if err != nil {
		return PublishedReport{}, fmt.Errorf("render checklist html: %w", err)
	}

	// Concurrent builds for the same template share this path; the second
	// writer wins. Accepted as-is.
	localPath := filepath.Join(os.TempDir(), fmt.Sprintf("checklist_%s.pdf", templateID))
	if err := s.writePDF(html, localPath); err != nil {
		return PublishedReport{}, fmt.Errorf("write pdf: %w", err)
	}

	key := fmt.Sprintf("checklists/%s/%s.pdf", templateID, time.Now().UTC().Format(storageKeyStamp))
	url, err := s.publisher.Publish(ctx, localPath, key, JobContext{
		Type:       ReportTypeChecklist,
		TemplateID: templateID,
	})
	if err != nil {
		return PublishedReport{}, err
	}

	return PublishedReport{URL: url}, nil
}

// BuildInspectionReport renders the answered checklist for one inspection
// instance and publishes it.
func (s *Service) BuildInspectionReport(ctx context.Context, inspectionID, versionID, assetID string) (PublishedReport, error) {
	doc, err := s.docs.InspectionDocument(ctx, inspectionID, versionID, assetID)
	if err != nil {
		return PublishedReport{}, err
	}

	html, err := s.renderer.Render("inspection.tmpl", doc)
	if err != nil {
		return PublishedReport{}, fmt.Errorf("render inspection html: %w", err)
	}

	localPath := filepath.Join(os.TempDir(), fmt.Sprintf("inspection_%s_%s.pdf", inspectionID, assetID))
	if err := s.writePDF(html, localPath); err != nil {
		return PublishedReport{}, fmt.Errorf("write pdf: %w", err)
	}

	key := fmt.Sprintf("inspections/%s/%s/%s.pdf", inspectionID, assetID, time.Now().UTC().Format(storageKeyStamp))
	url, err := s.publisher.Publish(ctx, localPath, key, JobContext{
		Type:         ReportTypeInspection,
		InspectionID: inspectionID,
		AssetID:      assetID,
	})
	if err != nil {
		return PublishedReport{}, err
	}

	return PublishedReport{URL: url}, nil
}
