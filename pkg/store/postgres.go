package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresConfig holds database connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresStore persists documents in a single JSONB-keyed table. All
// collections share the table; (collection, id) is the primary key.
type PostgresStore struct {
	db *stdsql.DB
}

// DB exposes the underlying connection for health checks.
func (s *PostgresStore) DB() *stdsql.DB { return s.db }

// NewPostgresStore opens a pooled connection, verifies it, and applies
// embedded migrations.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection (useful for tests)
// and applies migrations.
func NewPostgresStoreFromDB(db *stdsql.DB, database string) (*PostgresStore, error) {
	if err := runMigrations(db, database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// runMigrations applies pending migrations using golang-migrate with the
// migration files embedded into the binary.
func runMigrations(db *stdsql.DB, database string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, database, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the migration source. m.Close() would also close the
	// database driver, which closes the shared *sql.DB passed via
	// postgres.WithInstance().
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}

	return nil
}

// Get returns the document under id, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Upsert stores the document under id.
func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, doc, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id)
		 DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query returns documents matching the filter. Plain equality terms are
// pushed down as a JSONB containment query (served by the GIN index);
// operator terms ($in/$gte/$lte) are applied in-process on the narrowed
// result so every backend shares the same predicate semantics.
func (s *PostgresStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	contained := make(map[string]any)
	for field, cond := range filter {
		if _, isOps := operatorMap(cond); !isOps {
			contained[field] = cond
		}
	}

	query := `SELECT doc FROM documents WHERE collection = $1`
	args := []any{collection}
	if len(contained) > 0 {
		raw, err := json.Marshal(contained)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		query += ` AND doc @> $2::jsonb`
		args = append(args, raw)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	results := make([]Document, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		if Matches(doc, filter) {
			results = append(results, doc)
		}
	}
	return results, rows.Err()
}

// Delete removes the document under id, reporting whether it existed.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
