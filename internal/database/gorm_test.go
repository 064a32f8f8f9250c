package database

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormConfigTranslatesErrors(t *testing.T) {
	cfg := GormConfig(logger.Silent)
	assert.True(t, cfg.TranslateError)
	assert.NotNil(t, cfg.Logger)
}

func TestUniqueViolationBecomesDuplicatedKey(t *testing.T) {
	err := gormpostgres.Dialector{}.Translate(&pq.Error{Code: "23505"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
