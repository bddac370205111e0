// Package report generates PDF reports for checklist templates and completed
// inspections, publishes them to object storage, and announces finished
// artifacts on the message queue.
package report

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reportd/pkg/bus"
	gos3 "reportd/pkg/s3"

	"gorm.io/gorm"
)

// TemplateInfo is the header block of a rendered report.
type TemplateInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Answer is one submitted value for an item in an inspection. Items without a
// matching answer keep a nil *Answer; they are never dropped from the tree.
type Answer struct {
	Value     string    `json:"value"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a single checklist entry within a subcategory.
type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Answer      *Answer `json:"answer"`
}

// Subcategory groups items beneath a category.
type Subcategory struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// Category is a top-level section of a checklist version.
type Category struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Subcategories []Subcategory `json:"subcategories"`
}

// ChecklistDocument is the fully assembled tree handed to the renderer. It is
// built once per report and never mutated afterwards.
type ChecklistDocument struct {
	Template     TemplateInfo `json:"template"`
	InspectionID string       `json:"inspection_id,omitempty"`
	AssetID      string       `json:"asset_id,omitempty"`
	Categories   []Category   `json:"categories"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// Store holds the external dependencies required by the report service.
type Store struct {
	DB    *pgxpool.Pool
	ORM   *gorm.DB
	S3    *gos3.Client
	Queue *bus.Queue
}
