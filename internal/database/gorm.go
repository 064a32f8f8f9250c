// Package database opens the gorm session shared by the collaboration and
// notification repositories.
package database

import (
	"database/sql"
	"fmt"

	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormConfig returns the session options. TranslateError maps unique
// violations to gorm.ErrDuplicatedKey, which the repositories rely on for
// dedupe-key conflicts.
func GormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}
}

// OpenGorm opens gorm over an existing connection pool.
func OpenGorm(conn *sql.DB, level logger.LogLevel) (*gorm.DB, error) {
	orm, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: conn}), GormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return orm, nil
}

// OpenGormDSN opens gorm with its own pool.
func OpenGormDSN(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	orm, err := gorm.Open(gormpostgres.Open(dsn), GormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return orm, nil
}
