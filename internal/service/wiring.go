package service

import (
	"context"
	"fmt"

	"github.com/SteelMorgan/sqldump-importer/internal/checkpoint"
	"github.com/SteelMorgan/sqldump-importer/internal/clickhouse"
	"github.com/SteelMorgan/sqldump-importer/internal/config"
	"github.com/SteelMorgan/sqldump-importer/internal/database"
	"github.com/SteelMorgan/sqldump-importer/internal/importer"
	"github.com/SteelMorgan/sqldump-importer/internal/normalizer"
	"github.com/SteelMorgan/sqldump-importer/internal/writer"
	"github.com/rs/zerolog/log"
)

// EngineOptions translates application config and policy into engine options
func EngineOptions(cfg *config.Config, policy *config.Policy) (importer.Options, error) {
	truncated, err := importer.ParseTruncatedPolicy(cfg.TruncatedStatements)
	if err != nil {
		return importer.Options{}, err
	}

	opts := importer.DefaultOptions()
	opts.LineBudget = cfg.BatchLines
	opts.TimeBudget = cfg.BatchTime
	opts.BufferSize = cfg.ReadBufferBytes
	opts.Truncated = truncated
	opts.CollectStats = cfg.CollectTableStats
	opts.SkipVersionComments = cfg.SkipVersionComments
	opts.Policy = importer.NewCodeSetPolicy(policy.Codes(cfg.ExtraNonFatalCodes...)...)
	opts.Collations = normalizer.NewCollationNormalizer(policy.Collations)
	return opts, nil
}

// NewEngine builds the batch engine against the configured MySQL server
func NewEngine(cfg *config.Config) (*importer.Engine, error) {
	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}

	opts, err := EngineOptions(cfg, policy)
	if err != nil {
		return nil, err
	}

	connector := database.NewConnectorFromConfig(database.Options{
		Host:     cfg.MySQLHost,
		Port:     cfg.MySQLPort,
		User:     cfg.MySQLUser,
		Password: cfg.MySQLPassword,
		Database: cfg.MySQLDB,
		Charset:  cfg.MySQLCharset,
	}, cfg.ConnectMaxAttempts, cfg.ConnectInitialDelayMs, cfg.ConnectMaxDelayMs)

	log.Info().
		Int("batch_lines", opts.LineBudget).
		Dur("batch_time", opts.TimeBudget).
		Int("non_fatal_codes", len(policy.NonFatalCodes)+len(cfg.ExtraNonFatalCodes)).
		Int("collation_substitutions", len(policy.Collations)).
		Msg("Import engine configured")

	return importer.NewEngine(importer.ConnectFunc(func(ctx context.Context) (importer.Session, error) {
		session, err := connector.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	}), opts), nil
}

// New wires the import service from application config
func New(ctx context.Context, cfg *config.Config) (*ImportService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	store, err := checkpoint.NewBoltDBStore(cfg.CheckpointDBPath)
	if err != nil {
		return nil, err
	}

	closers := []func() error{store.Close}
	var progress writer.ProgressWriter = writer.NopWriter{}

	if cfg.ProgressMirror {
		client, err := clickhouse.NewClient(ctx, cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDB)
		if err != nil {
			store.Close()
			return nil, err
		}
		chWriter := writer.NewClickHouseProgressWriter(client.Conn(), cfg.ClickHouseDB)
		if err := chWriter.EnsureSchema(ctx); err != nil {
			client.Close()
			store.Close()
			return nil, err
		}
		progress = chWriter
		closers = append(closers, client.Close)
	}

	svc, err := NewImportService(Deps{
		Runner:    engine,
		Store:     store,
		Progress:  progress,
		ImportDir: cfg.ImportDir,
		LogDir:    cfg.LogDir,
	})
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	svc.closers = closers

	return svc, nil
}
