package migrations

import "github.com/go-gormigrate/gormigrate/v2"

// At most one open payment plan per code.
func migrate20241015_0100() *gormigrate.Migration {
	return CreateMigrationFromActions("20241015-0100",
		ExecAction(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_plans_open ON payment_plans (device_code_id) WHERE completed_at IS NULL`,
			`DROP INDEX IF EXISTS idx_payment_plans_open`,
		),
	)
}
