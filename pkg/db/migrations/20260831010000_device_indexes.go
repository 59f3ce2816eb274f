package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		_, err := db.NewRaw("CREATE INDEX IF NOT EXISTS inventory_devices_country_idx ON inventory.devices (country_code)").Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewRaw("CREATE INDEX IF NOT EXISTS inventory_job_records_status_idx ON inventory.job_records (status)").Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		_, err := db.NewRaw("DROP INDEX IF EXISTS inventory_devices_country_idx").Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewRaw("DROP INDEX IF EXISTS inventory_job_records_status_idx").Exec(ctx)
		return err
	})
}
