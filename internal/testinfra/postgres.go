// Package testinfra starts throwaway Postgres databases for integration tests.
// Tests using it are skipped unless INTEGRATION_TESTS is set.
package testinfra

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gatherhub/collab-portal/collab-portal-backend/internal/database"
)

// Postgres is a running test database.
type Postgres struct {
	DSN string
	SQL *sqlx.DB
	ORM *gorm.DB
}

// StartPostgres boots a Postgres 16 container, or reuses TEST_PG_DSN when
// set, and closes everything when the test ends.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run postgres integration tests")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("collab_portal"),
			postgres.WithUsername("portal"),
			postgres.WithPassword("portal"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("start postgres container: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("resolve connection string: %v", err)
		}
	}

	sqlDB, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect sqlx: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	orm, err := database.OpenGormDSN(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	t.Cleanup(func() {
		if db, err := orm.DB(); err == nil {
			_ = db.Close()
		}
	})

	return &Postgres{DSN: dsn, SQL: sqlDB, ORM: orm}
}

// Truncate empties the given tables.
func (p *Postgres) Truncate(t *testing.T, tables ...string) {
	t.Helper()
	for _, tbl := range tables {
		if _, err := p.SQL.Exec("TRUNCATE TABLE " + tbl + " CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", tbl, err)
		}
	}
}
