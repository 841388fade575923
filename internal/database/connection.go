package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"idleduelist/internal/config"
)

// NewConnection ouvre la base de données.
// postgres://... en production, un fichier SQLite en développement.
func NewConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := "sqlite3"
	dsn := strings.TrimPrefix(cfg.URL, "sqlite://")
	if cfg.IsPostgres() {
		driver = "postgres"
		dsn = cfg.URL
	}

	logrus.WithFields(logrus.Fields{
		"driver": driver,
	}).Info("Connecting to database...")

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configuration de la pool de connexions
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// SQLite ne supporte qu'un seul writer
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	// Test de la connexion
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"driver":         driver,
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	}).Info("Connected to database successfully")

	return db, nil
}
