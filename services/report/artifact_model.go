package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ArtifactStatusActive marks a published artifact whose signed URL has not yet
// expired. Rows are written once and never updated in this flow.
const ArtifactStatusActive = "ACTIVE"

// PublishedArtifact is the durable record for one uploaded report PDF.
type PublishedArtifact struct {
	ID        uuid.UUID      `json:"id"`
	URL       string         `json:"url"`
	Name      string         `json:"name"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Status    string         `json:"status"`
	Meta      map[string]any `json:"meta"`
}

type reportModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	URL       string            `gorm:"type:text;not null"`
	Name      string            `gorm:"type:text;not null"`
	IssuedAt  time.Time         `gorm:"type:timestamptz;not null"`
	ExpiresAt time.Time         `gorm:"type:timestamptz;not null"`
	Status    string            `gorm:"type:text;not null"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time         `gorm:"type:timestamptz;not null;autoUpdateTime:false"`
}

func (reportModel) TableName() string { return "report_pdfs" }

func (m reportModel) toAPI() PublishedArtifact {
	return PublishedArtifact{
		ID:        m.ID,
		URL:       m.URL,
		Name:      m.Name,
		IssuedAt:  m.IssuedAt,
		ExpiresAt: m.ExpiresAt,
		Status:    m.Status,
		Meta:      mapFromJSONMap(m.Meta),
	}
}

// ArtifactStore persists and reads back published artifact records.
type ArtifactStore interface {
	CreateArtifact(ctx context.Context, artifact PublishedArtifact) error
	RecentArtifacts(ctx context.Context, limit int) ([]PublishedArtifact, error)
}

type gormArtifacts struct {
	orm *gorm.DB
}

// NewArtifactStore returns a gorm-backed ArtifactStore.
func NewArtifactStore(orm *gorm.DB) (ArtifactStore, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &gormArtifacts{orm: orm}, nil
}

func (g *gormArtifacts) CreateArtifact(ctx context.Context, artifact PublishedArtifact) error {
	model := reportModel{
		ID:        artifact.ID,
		URL:       artifact.URL,
		Name:      artifact.Name,
		IssuedAt:  artifact.IssuedAt,
		ExpiresAt: artifact.ExpiresAt,
		Status:    artifact.Status,
		Meta:      toJSONMap(artifact.Meta),
		// The original record keeps updated_at pinned to the expiry set at
		// creation; nothing touches the row afterwards.
		UpdatedAt: artifact.ExpiresAt,
	}
	return g.orm.WithContext(ctx).Create(&model).Error
}

func (g *gormArtifacts) RecentArtifacts(ctx context.Context, limit int) ([]PublishedArtifact, error) {
	var models []reportModel
	err := g.orm.WithContext(ctx).
		Order("issued_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]PublishedArtifact, 0, len(models))
	for _, m := range models {
		out = append(out, m.toAPI())
	}
	return out, nil
}

func mapFromJSONMap(src datatypes.JSONMap) map[string]any {
	if src == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func toJSONMap(src map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range src {
		out[k] = v
	}
	return out
}
