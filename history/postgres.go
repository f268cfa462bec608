package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"walk-loop-server/routing"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresStore implements Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens the database at databaseURL, configures the
// connection pool and runs any pending migrations.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// newPostgresStoreWithDB wraps an open database without migrating it.
func newPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Frequency(ctx context.Context, user string) (routing.Frequency, error) {
	if user == "" {
		return nil, ErrNoUser
	}
	return queryFrequency(ctx, s.db, user)
}

// RecordLoop stores the loop and bumps the visit counts of its segments in
// one transaction.
func (s *PostgresStore) RecordLoop(ctx context.Context, user string, loop *routing.Loop) error {
	if user == "" {
		return ErrNoUser
	}
	if loop == nil || loop.Degenerate {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := queryInsertLoop(ctx, tx, user, loop); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert loop %s: %w", loop.ID, err)
	}
	if err := queryAddVisits(ctx, tx, user, loop.Nodes); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record visits of %s: %w", loop.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, user string, limit int) ([]Entry, error) {
	if user == "" {
		return nil, ErrNoUser
	}
	if limit <= 0 {
		return []Entry{}, nil
	}
	return queryRecent(ctx, s.db, user, limit)
}

func queryFrequency(ctx context.Context, db executor, user string) (routing.Frequency, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT from_node, to_node, seg_key, visits
		FROM segment_visits
		WHERE user_id = $1`,
		user,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	freq := make(routing.Frequency)
	for rows.Next() {
		var seg routing.Segment
		var visits int
		if err := rows.Scan(&seg.From, &seg.To, &seg.Key, &visits); err != nil {
			return nil, err
		}
		freq[seg] = visits
	}
	return freq, rows.Err()
}

func queryInsertLoop(ctx context.Context, db executor, user string, loop *routing.Loop) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO walk_routes (id, user_id, start_node, nodes, length_m, novel_segments, novel_length_m)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		loop.ID, user, loop.Start, pq.Array(loop.Nodes), loop.Length, loop.NovelSegments, loop.NovelLength,
	)
	return err
}

// queryAddVisits counts every consecutive node pair of route as one visit.
func queryAddVisits(ctx context.Context, db executor, user string, route []int64) error {
	if len(route) < 2 {
		return nil
	}
	from := route[:len(route)-1]
	to := route[1:]
	_, err := db.ExecContext(ctx, `
		INSERT INTO segment_visits (user_id, from_node, to_node, seg_key, visits)
		SELECT $1, s.from_node, s.to_node, 0, COUNT(*)
		FROM unnest($2::bigint[], $3::bigint[]) AS s(from_node, to_node)
		GROUP BY s.from_node, s.to_node
		ON CONFLICT (user_id, from_node, to_node, seg_key)
		DO UPDATE SET visits = segment_visits.visits + EXCLUDED.visits`,
		user, pq.Array(from), pq.Array(to),
	)
	return err
}

func queryRecent(ctx context.Context, db executor, user string, limit int) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, start_node, nodes, length_m, novel_segments, novel_length_m, created_at
		FROM walk_routes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		user, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := Entry{User: user}
		if err := rows.Scan(&e.ID, &e.Start, pq.Array(&e.Nodes), &e.Length, &e.NovelSegments, &e.NovelLength, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
