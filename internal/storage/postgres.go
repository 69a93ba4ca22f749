package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/knowledge-hub/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	name   string
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, name string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if name == "" {
		name = DefaultSnapshotName
	}
	storage := &PostgresStorage{db: db, name: name, logger: logger}

	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL", zap.String("host", config.Host), zap.String("dbname", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Load(ctx context.Context) (models.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE name = $1`, s.name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("error loading snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *PostgresStorage) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (name, data, github_username, item_count, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data,
			github_username = EXCLUDED.github_username,
			item_count = EXCLUDED.item_count,
			saved_at = EXCLUDED.saved_at`

	if _, err := s.db.ExecContext(ctx, query, s.name, data, snap.GitHubUsername, len(snap.Items), snap.SavedAt); err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
