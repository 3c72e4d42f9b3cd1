package main

import (
	"fmt"
	"os"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/viper"
)

// cfg is resolved once per invocation, before any command runs
var cfg *util.Config

// loadConfig resolves flags, MCAT_* variables and the config file, then
// configures logging
func loadConfig() error {
	c, err := util.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := c.ApplyLogging(); err != nil {
		return err
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		util.SetColors(false)
	}

	if !c.NetworkDB && util.DatabaseOnNetwork(c.DB) {
		util.InfoLog("Database is on a network filesystem, enabling network tuning")
		c.NetworkDB = true
	}

	cfg = c
	return nil
}

// openStore opens the catalog named by the config
func openStore() (*store.Store, error) {
	db, err := store.OpenWithOptions(cfg.DB, &store.OpenOptions{
		NetworkOptimized: cfg.NetworkDB,
		Retry:            cfg.RetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openAuditLog returns the JSONL audit logger, or a null logger when
// auditing is off or the log cannot be created
func openAuditLog() *report.EventLogger {
	if cfg.NoAudit {
		return report.NullLogger()
	}

	logLevel := report.LevelInfo
	if cfg.Quiet {
		logLevel = report.LevelWarning
	} else if cfg.Verbose {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger(cfg.AuditDir, logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.DebugLog("Event log: %s", logger.Path())
	return logger
}

// withStore opens the catalog and the audit log around fn
func withStore(fn func(db *store.Store, audit *report.EventLogger) error) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	audit := openAuditLog()
	defer audit.Close()

	return fn(db, audit)
}
