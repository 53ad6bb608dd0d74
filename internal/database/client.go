package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/retry"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// Options describes the MySQL target of an import
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Charset  string
}

// Session is one pinned database connection. Every statement of a batch
// runs on the same connection so session variables set by the dump
// (SET NAMES, FOREIGN_KEY_CHECKS, ...) stay in effect.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
}

// ExecContext executes a statement on the pinned connection
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

// QueryContext runs a query on the pinned connection
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

// Close releases the connection and the pool behind it
func (s *Session) Close() error {
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

// Connector opens a fresh Session per batch
type Connector struct {
	opts     Options
	retryCfg retry.Config
}

// NewConnector creates a connector with default retry config
func NewConnector(opts Options) *Connector {
	return NewConnectorWithRetry(opts, retry.DefaultConfig())
}

// NewConnectorFromConfig creates a connector with retry settings from application config
func NewConnectorFromConfig(opts Options, maxAttempts int, initialDelayMs int, maxDelayMs int) *Connector {
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = maxAttempts
	retryCfg.InitialDelay = time.Duration(initialDelayMs) * time.Millisecond
	retryCfg.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
	return NewConnectorWithRetry(opts, retryCfg)
}

// NewConnectorWithRetry creates a connector with custom retry configuration
func NewConnectorWithRetry(opts Options, retryCfg retry.Config) *Connector {
	return &Connector{opts: opts, retryCfg: retryCfg}
}

// DSN builds the driver data source name
func (c *Connector) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.opts.User
	cfg.Passwd = c.opts.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
	cfg.DBName = c.opts.Database
	if c.opts.Charset != "" {
		cfg.Params = map[string]string{"charset": c.opts.Charset}
	}
	return cfg.FormatDSN()
}

// Connect opens a pool limited to one connection and pins that connection
func (c *Connector) Connect(ctx context.Context) (*Session, error) {
	db, err := sql.Open("mysql", c.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := retry.Do(ctx, c.retryCfg, func() error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to pin mysql connection: %w", err)
	}

	log.Debug().
		Str("host", c.opts.Host).
		Int("port", c.opts.Port).
		Str("database", c.opts.Database).
		Msg("Connected to MySQL")

	return &Session{db: db, conn: conn}, nil
}
