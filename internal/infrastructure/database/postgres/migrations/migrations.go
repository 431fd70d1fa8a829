package migrations

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrations wraps gormigrate with the schema history of this service.
//
// Rules:
//
//  1. IDs are timestamps that sort ascending, formatted YYYYMMDD-HHMM.
//  2. Models are declared inline with each migration so that later changes to
//     the runtime models never alter what an old migration creates.
//  3. Migrations run against both PostgreSQL and SQLite, so raw SQL must stay
//     within the dialect both support.
type Migrations struct {
	Migrations  []*gormigrate.Migration
	GormOptions *gormigrate.Options
}

func New() *Migrations {
	return &Migrations{
		GormOptions: &gormigrate.Options{
			TableName:      "schema_migrations",
			IDColumnName:   "id",
			IDColumnSize:   40,
			UseTransaction: false,
		},
		Migrations: []*gormigrate.Migration{
			migrate20241015_0000(),
			migrate20241015_0100(),
		},
	}
}

func (m *Migrations) Migrate(ctx context.Context, db *gorm.DB) error {
	return gormigrate.New(db.WithContext(ctx), m.GormOptions, m.Migrations).Migrate()
}

func (m *Migrations) RollbackLast(ctx context.Context, db *gorm.DB) error {
	return gormigrate.New(db.WithContext(ctx), m.GormOptions, m.Migrations).RollbackLast()
}

type MigrationAction func(tx *gorm.DB, apply bool) error

func CreateMigrationFromActions(id string, actions ...MigrationAction) *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: id,
		Migrate: func(tx *gorm.DB) error {
			for _, action := range actions {
				if err := action(tx, true); err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			for i := len(actions) - 1; i >= 0; i-- {
				if err := actions[i](tx, false); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func CreateTableAction(table interface{}) MigrationAction {
	caller := callerOf()
	return func(tx *gorm.DB, apply bool) error {
		var err error
		if apply {
			err = tx.AutoMigrate(table)
		} else {
			err = tx.Migrator().DropTable(table)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", caller, err)
		}
		return nil
	}
}

func ExecAction(up, down string) MigrationAction {
	caller := callerOf()
	return func(tx *gorm.DB, apply bool) error {
		stmt := up
		if !apply {
			stmt = down
		}
		if stmt == "" {
			return nil
		}
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", caller, err)
		}
		return nil
	}
}

func callerOf() string {
	if _, file, no, ok := runtime.Caller(2); ok {
		return fmt.Sprintf("[ %s:%d ]", file, no)
	}
	return ""
}
