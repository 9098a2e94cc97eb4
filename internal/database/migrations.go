package database

import (
	"errors"
	"time"

	"github.com/diredev/campushub/internal/forum"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillDiscussionCategory = "2026-07-14_backfill_discussion_category"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillDiscussionCategory, apply: backfillDiscussionCategory},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Discussions written before categories existed carry an empty string;
// fold them into the general bucket so the sidebar filters stay exact.
func backfillDiscussionCategory(db *gorm.DB) error {
	return db.Model(&forum.Discussion{}).
		Where("category = ''").
		Update("category", string(forum.CategoryGeneral)).Error
}
