package migrations

import (
	"context"
	"fmt"

	"github.com/netbatch/netbatch/pkg/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		// Create inventory schema
		_, err := db.NewRaw("CREATE SCHEMA IF NOT EXISTS inventory").Exec(ctx)
		if err != nil {
			return err
		}

		// Create devices table from struct
		_, err = db.NewCreateTable().
			Model((*models.Device)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		// Create job_records table from struct
		_, err = db.NewCreateTable().
			Model((*models.JobRecord)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		_, err := db.NewDropTable().Model((*models.JobRecord)(nil)).IfExists().Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewDropTable().Model((*models.Device)(nil)).IfExists().Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewRaw("DROP SCHEMA IF EXISTS inventory").Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	})
}
