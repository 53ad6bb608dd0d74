package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnector_DSN(t *testing.T) {
	c := NewConnector(Options{
		Host:     "db.local",
		Port:     3307,
		User:     "importer",
		Password: "s3cret",
		Database: "shop",
		Charset:  "utf8mb4",
	})

	dsn := c.DSN()
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.local:3307", cfg.Addr)
	assert.Equal(t, "importer", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.Equal(t, "shop", cfg.DBName)
	assert.False(t, cfg.MultiStatements)
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestConnector_DSNWithoutCharset(t *testing.T) {
	c := NewConnector(Options{Host: "localhost", Port: 3306, User: "root", Database: "db"})

	dsn := c.DSN()
	_, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)

	assert.NotContains(t, dsn, "charset=")
}

func TestNewConnectorFromConfig(t *testing.T) {
	c := NewConnectorFromConfig(Options{Host: "h", Port: 1}, 5, 10, 100)

	assert.Equal(t, 5, c.retryCfg.MaxAttempts)
	assert.Equal(t, int64(10), c.retryCfg.InitialDelay.Milliseconds())
	assert.Equal(t, int64(100), c.retryCfg.MaxDelay.Milliseconds())
	assert.NotEmpty(t, c.retryCfg.RetryableErrors)
}
