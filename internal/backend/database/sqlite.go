package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteDatabase stores records in a table ordered by an insertion sequence
type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
	maxRecords       int
}

func NewSQLiteDatabase(connectionString string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
		maxRecords:       MaxRecords,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		filename TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		analyzed TEXT NOT NULL DEFAULT '{}',
		image TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS records_timestamp ON records (timestamp)`); err != nil {
		return fmt.Errorf("create timestamp index: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create store_meta table: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM store_meta WHERE key = 'initialized'`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query store_meta: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) AppendRecord(ctx context.Context, record Record) (Record, error) {
	analyzed, err := json.Marshal(record.Analyzed)
	if err != nil {
		return Record{}, fmt.Errorf("encode analyzed: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (timestamp, filename, text, analyzed, image) VALUES (?, ?, ?, ?, ?)`,
		record.Timestamp, record.Filename, record.Text, string(analyzed), record.Image)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM records WHERE seq NOT IN (SELECT seq FROM records ORDER BY seq DESC LIMIT ?)`,
		s.maxRecords)
	if err != nil {
		return Record{}, fmt.Errorf("evict old records: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO store_meta (key, value) VALUES ('initialized', ?)`, record.Timestamp)
	if err != nil {
		return Record{}, fmt.Errorf("mark store initialized: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit record: %w", err)
	}
	return record, nil
}

func (s *SQLiteDatabase) GetRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, filename, text, analyzed, image FROM records ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []Record{}
	for rows.Next() {
		var record Record
		var analyzed string
		if err := rows.Scan(&record.Timestamp, &record.Filename, &record.Text, &analyzed, &record.Image); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(analyzed), &record.Analyzed); err != nil {
			slog.Warn("skipping record with unreadable analyzed column", "timestamp", record.Timestamp, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteDatabase) UpdateAnalyzed(ctx context.Context, timestamp string, analyzed Analyzed) (bool, error) {
	encoded, err := json.Marshal(analyzed)
	if err != nil {
		return false, fmt.Errorf("encode analyzed: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE records SET analyzed = ? WHERE seq = (SELECT MIN(seq) FROM records WHERE timestamp = ?)`,
		string(encoded), timestamp)
	if err != nil {
		return false, fmt.Errorf("update record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteDatabase) DeleteRecords(ctx context.Context, timestamp string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE timestamp = ?`, timestamp)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
