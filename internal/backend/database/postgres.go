package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	// schemaLockID serializes schema bootstrap across concurrently starting servers
	schemaLockID int64 = 2025030101
	// appendLockID serializes appends so eviction always sees every committed row
	appendLockID int64 = 2025030102
)

// PostgresDatabase keeps records in a shared PostgreSQL table so several
// server instances can serve the same result list
type PostgresDatabase struct {
	db         *sql.DB
	maxRecords int
}

func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	return newPostgresDatabase(db), nil
}

func newPostgresDatabase(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{
		db:         db,
		maxRecords: MaxRecords,
	}
}

func (s *PostgresDatabase) CreateDatabase(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS records (
	seq BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	timestamp TEXT NOT NULL,
	filename TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	analyzed JSONB NOT NULL DEFAULT '{}'::jsonb,
	image TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);

CREATE TABLE IF NOT EXISTS store_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *PostgresDatabase) DoesDatabaseExist(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM store_meta WHERE key = 'initialized')`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query store_meta: %w", err)
	}
	return exists, nil
}

func (s *PostgresDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresDatabase) AppendRecord(ctx context.Context, record Record) (Record, error) {
	analyzed, err := json.Marshal(record.Analyzed)
	if err != nil {
		return Record{}, fmt.Errorf("encode analyzed: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockID); err != nil {
		return Record{}, fmt.Errorf("acquire append lock: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO records (timestamp, filename, text, analyzed, image)
VALUES ($1, $2, $3, $4::jsonb, $5)`,
		record.Timestamp, record.Filename, record.Text, string(analyzed), record.Image)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
DELETE FROM records
WHERE seq NOT IN (SELECT seq FROM records ORDER BY seq DESC LIMIT $1)`,
		s.maxRecords)
	if err != nil {
		return Record{}, fmt.Errorf("evict old records: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO store_meta (key, value) VALUES ('initialized', $1)
ON CONFLICT (key) DO NOTHING`, record.Timestamp)
	if err != nil {
		return Record{}, fmt.Errorf("mark store initialized: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit record: %w", err)
	}
	return record, nil
}

func (s *PostgresDatabase) GetRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT timestamp, filename, text, analyzed, image
FROM records
ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []Record{}
	for rows.Next() {
		var record Record
		var analyzed []byte
		if err := rows.Scan(&record.Timestamp, &record.Filename, &record.Text, &analyzed, &record.Image); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal(analyzed, &record.Analyzed); err != nil {
			slog.Warn("skipping record with unreadable analyzed column", "timestamp", record.Timestamp, "error", err)
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *PostgresDatabase) UpdateAnalyzed(ctx context.Context, timestamp string, analyzed Analyzed) (bool, error) {
	encoded, err := json.Marshal(analyzed)
	if err != nil {
		return false, fmt.Errorf("encode analyzed: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
UPDATE records SET analyzed = $1::jsonb
WHERE seq = (SELECT MIN(seq) FROM records WHERE timestamp = $2)`,
		string(encoded), timestamp)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresDatabase) DeleteRecords(ctx context.Context, timestamp string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE timestamp = $1`, timestamp)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(affected), nil
}
