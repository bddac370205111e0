package report

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"reportd/pkg/db"
)

// Assembler builds checklist document trees from the relational store. It is
// read-only; identifiers are matched as text so a malformed id simply finds
// no rows.
type Assembler struct {
	pool *pgxpool.Pool
}

// NewAssembler creates an Assembler over the provided pool.
func NewAssembler(pool *pgxpool.Pool) *Assembler {
	return &Assembler{pool: pool}
}

type templateRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type versionRow struct {
	ID            string `db:"id"`
	VersionNumber int    `db:"version_number"`
}

type categoryRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

type subcategoryRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

type associationRow struct {
	ID     string `db:"id"`
	ItemID string `db:"checklist_items_id"`
}

type itemRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

type answerRow struct {
	AssociationID string    `db:"subcategory_to_item_id"`
	Answer        string    `db:"answer"`
	Comment       string    `db:"comment"`
	CreatedAt     time.Time `db:"created_at"`
}

// ChecklistDocument assembles the latest version of a template with no
// answers attached.
func (a *Assembler) ChecklistDocument(ctx context.Context, templateID string) (*ChecklistDocument, error) {
	var template templateRow
	err := db.Get(ctx, a.pool, &template, `
SELECT id::text AS id, name, description, created_at, updated_at
FROM checklist_templates
WHERE id::text = $1
`, templateID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("fetch template: %w", err)
	}

	var version versionRow
	err = db.Get(ctx, a.pool, &version, `
SELECT id::text AS id, version_number
FROM checklist_versions
WHERE checklist_id::text = $1
ORDER BY version_number DESC, created_at DESC, id
LIMIT 1
`, templateID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("fetch latest version: %w", err)
	}

	categories, err := a.categories(ctx, version.ID, nil)
	if err != nil {
		return nil, err
	}

	return &ChecklistDocument{
		Template:    template.toInfo(),
		Categories:  categories,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// InspectionDocument assembles the tree for one inspection instance, attaching
// the submitted answer to each item. The answer set is fetched first: an empty
// set fails before any tree work happens.
func (a *Assembler) InspectionDocument(ctx context.Context, inspectionID, versionID, assetID string) (*ChecklistDocument, error) {
	var answers []answerRow
	err := db.Select(ctx, a.pool, &answers, `
SELECT ai.subcategory_to_item_id::text AS subcategory_to_item_id, ai.answer, ai.comment, ai.created_at
FROM checklist_answer_items ai
JOIN checklist_answers a ON ai.checklist_answers_id = a.id
WHERE a.route_id = $1 AND a.version_id::text = $2 AND a.asset_id = $3
`, inspectionID, versionID, assetID)
	if err != nil {
		return nil, fmt.Errorf("fetch answers: %w", err)
	}
	if len(answers) == 0 {
		return nil, ErrAnswersNotFound
	}

	var template templateRow
	err = db.Get(ctx, a.pool, &template, `
SELECT t.id::text AS id, t.name, t.description, t.created_at, t.updated_at
FROM checklist_templates t
JOIN checklist_versions v ON v.checklist_id = t.id
WHERE v.id::text = $1
`, versionID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("fetch template for version: %w", err)
	}

	categories, err := a.categories(ctx, versionID, answersByAssociation(answers))
	if err != nil {
		return nil, err
	}

	return &ChecklistDocument{
		Template:     template.toInfo(),
		InspectionID: inspectionID,
		AssetID:      assetID,
		Categories:   categories,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func (a *Assembler) categories(ctx context.Context, versionID string, answers map[string]answerRow) ([]Category, error) {
	var rows []categoryRow
	err := db.Select(ctx, a.pool, &rows, `
SELECT id::text AS id, title, description
FROM checklist_categories
WHERE version_id::text = $1
ORDER BY created_at, id
`, versionID)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}

	categories := make([]Category, 0, len(rows))
	for _, row := range rows {
		subcategories, err := a.subcategories(ctx, row.ID, answers)
		if err != nil {
			return nil, err
		}
		categories = append(categories, Category{
			ID:            row.ID,
			Title:         row.Title,
			Description:   row.Description,
			Subcategories: subcategories,
		})
	}
	return categories, nil
}

func (a *Assembler) subcategories(ctx context.Context, categoryID string, answers map[string]answerRow) ([]Subcategory, error) {
	var rows []subcategoryRow
	err := db.Select(ctx, a.pool, &rows, `
SELECT id::text AS id, title, description
FROM checklist_subcategories
WHERE checklist_category_id::text = $1
ORDER BY created_at, id
`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("fetch subcategories: %w", err)
	}

	subcategories := make([]Subcategory, 0, len(rows))
	for _, row := range rows {
		items, err := a.items(ctx, row.ID, answers)
		if err != nil {
			return nil, err
		}
		subcategories = append(subcategories, Subcategory{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			Items:       items,
		})
	}
	return subcategories, nil
}

func (a *Assembler) items(ctx context.Context, subcategoryID string, answers map[string]answerRow) ([]Item, error) {
	var associations []associationRow
	err := db.Select(ctx, a.pool, &associations, `
SELECT id::text AS id, checklist_items_id::text AS checklist_items_id
FROM checklist_items_to_subcategories
WHERE checklist_subcategory_id::text = $1
ORDER BY created_at, id
`, subcategoryID)
	if err != nil {
		return nil, fmt.Errorf("fetch item associations: %w", err)
	}

	items := make(map[string]itemRow, len(associations))
	for _, assoc := range associations {
		var item itemRow
		err := db.Get(ctx, a.pool, &item, `
SELECT id::text AS id, title, description
FROM checklist_items
WHERE id::text = $1
`, assoc.ItemID)
		if err != nil {
			if pgxscan.NotFound(err) {
				continue
			}
			return nil, fmt.Errorf("fetch item: %w", err)
		}
		items[assoc.ID] = item
	}

	return buildItems(associations, items, answers), nil
}

// buildItems assembles item nodes in association order. An association whose
// item row is missing is skipped; an item with no matching answer keeps a nil
// Answer rather than being dropped.
func buildItems(associations []associationRow, items map[string]itemRow, answers map[string]answerRow) []Item {
	out := make([]Item, 0, len(associations))
	for _, assoc := range associations {
		item, ok := items[assoc.ID]
		if !ok {
			continue
		}

		node := Item{ID: item.ID, Title: item.Title, Description: item.Description}
		if answer, ok := answers[assoc.ID]; ok {
			node.Answer = &Answer{
				Value:     answer.Answer,
				Comment:   answer.Comment,
				CreatedAt: answer.CreatedAt,
			}
		}
		out = append(out, node)
	}
	return out
}

func answersByAssociation(rows []answerRow) map[string]answerRow {
	out := make(map[string]answerRow, len(rows))
	for _, row := range rows {
		out[row.AssociationID] = row
	}
	return out
}

func (t templateRow) toInfo() TemplateInfo {
	return TemplateInfo{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
