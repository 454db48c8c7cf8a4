package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestClose(t *testing.T) {
	assert.NoError(t, Close(nil))

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Close(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
