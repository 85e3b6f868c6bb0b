package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/dreschagin/qtrack/internal/domain/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PoolConfig - настройки пула соединений
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Store реализует repository.Store поверх таблицы qtrack_records (JSONB).
type Store struct {
	db *sql.DB
}

var _ repository.Store = (*Store)(nil)

// Open подключается к PostgreSQL, проверяет соединение и накатывает миграции.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return NewStore(db), nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate применяет встроенные goose миграции.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM qtrack_records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return data, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO qtrack_records (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, id, data)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM qtrack_records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, collection string) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM qtrack_records WHERE collection = $1 ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
	}
	defer rows.Close()

	result := make([][]byte, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to read %s row: %w", collection, err)
		}
		result = append(result, data)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// Ping используется readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
