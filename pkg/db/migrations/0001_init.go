package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type ChecklistTemplate struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type ChecklistVersion struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ChecklistID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	VersionNumber int               `gorm:"type:int;not null"`
	CreatedAt     time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Template      ChecklistTemplate `gorm:"foreignKey:ChecklistID;references:ID;constraint:OnDelete:CASCADE"`
}

type ChecklistCategory struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	VersionID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	Title       string           `gorm:"type:text;not null"`
	Description string           `gorm:"type:text"`
	CreatedAt   time.Time        `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Version     ChecklistVersion `gorm:"foreignKey:VersionID;references:ID;constraint:OnDelete:CASCADE"`
}

type ChecklistSubcategory struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ChecklistCategoryID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Title               string            `gorm:"type:text;not null"`
	Description         string            `gorm:"type:text"`
	CreatedAt           time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Category            ChecklistCategory `gorm:"foreignKey:ChecklistCategoryID;references:ID;constraint:OnDelete:CASCADE"`
}

type ChecklistItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"type:text;not null"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

type ChecklistItemsToSubcategory struct {
	ID                     uuid.UUID            `gorm:"type:uuid;primaryKey"`
	ChecklistSubcategoryID uuid.UUID            `gorm:"type:uuid;not null;index"`
	ChecklistItemsID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	CreatedAt              time.Time            `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Subcategory            ChecklistSubcategory `gorm:"foreignKey:ChecklistSubcategoryID;references:ID;constraint:OnDelete:CASCADE"`
	Item                   ChecklistItem        `gorm:"foreignKey:ChecklistItemsID;references:ID;constraint:OnDelete:CASCADE"`
}

func (ChecklistItemsToSubcategory) TableName() string { return "checklist_items_to_subcategories" }

type ChecklistAnswer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RouteID   string    `gorm:"type:text;not null;index:idx_answers_key"`
	VersionID uuid.UUID `gorm:"type:uuid;not null;index:idx_answers_key"`
	AssetID   string    `gorm:"type:text;not null;index:idx_answers_key"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

type ChecklistAnswerItem struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ChecklistAnswersID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SubcategoryToItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Answer              string          `gorm:"type:text"`
	Comment             string          `gorm:"type:text"`
	CreatedAt           time.Time       `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Parent              ChecklistAnswer `gorm:"foreignKey:ChecklistAnswersID;references:ID;constraint:OnDelete:CASCADE"`
}

type ReportPDF struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	URL       string            `gorm:"type:text;not null"`
	Name      string            `gorm:"type:text;not null"`
	IssuedAt  time.Time         `gorm:"type:timestamptz;not null"`
	ExpiresAt time.Time         `gorm:"type:timestamptz;not null"`
	Status    string            `gorm:"type:text;not null"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt time.Time         `gorm:"type:timestamptz;not null;default:now()"`
}

func (ReportPDF) TableName() string { return "report_pdfs" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&ChecklistTemplate{},
		&ChecklistVersion{},
		&ChecklistCategory{},
		&ChecklistSubcategory{},
		&ChecklistItem{},
		&ChecklistItemsToSubcategory{},
		&ChecklistAnswer{},
		&ChecklistAnswerItem{},
		&ReportPDF{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if err := m.CreateConstraint(&ChecklistVersion{}, "Template"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&ChecklistCategory{}, "Version"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&ChecklistSubcategory{}, "Category"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&ChecklistItemsToSubcategory{}, "Subcategory"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&ChecklistItemsToSubcategory{}, "Item"); err != nil {
		return err
	}
	if err := m.CreateConstraint(&ChecklistAnswerItem{}, "Parent"); err != nil {
		return err
	}

	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&ReportPDF{},
		&ChecklistAnswerItem{},
		&ChecklistAnswer{},
		&ChecklistItemsToSubcategory{},
		&ChecklistItem{},
		&ChecklistSubcategory{},
		&ChecklistCategory{},
		&ChecklistVersion{},
		&ChecklistTemplate{},
	)
}
