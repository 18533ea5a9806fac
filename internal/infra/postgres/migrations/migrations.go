package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_quizzes.sql
var createQuizzesSQL string

//go:embed 0002_create_issuance_records.sql
var createIssuanceRecordsSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.Add(migrate.Migration{
		Name: "20241122010000",
		Up:   execSQL(createQuizzesSQL),
		Down: execSQL(`DROP TABLE IF EXISTS quizzes`),
	})
	Migrations.Add(migrate.Migration{
		Name: "20261016090000",
		Up:   execSQL(createIssuanceRecordsSQL),
		Down: execSQL(`DROP TABLE IF EXISTS issuance_records`),
	})
}

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
