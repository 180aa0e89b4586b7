package transcriber

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps a history of finished transcriptions in an embedded sqlite db.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	output_path TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	duration_seconds REAL NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
`

func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &Store{
		db: db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type Record struct {
	ID              int64     `json:"id"`
	Source          string    `json:"source"`
	OutputPath      string    `json:"output_path"`
	Language        string    `json:"language"`
	DurationSeconds float64   `json:"duration_seconds"`
	CostUSD         float64   `json:"cost_usd"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Store) Save(ctx context.Context, record *Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transcriptions (source, output_path, language, duration_seconds, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.Source, record.OutputPath, record.Language, record.DurationSeconds, record.CostUSD, record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transcription: %w", err)
	}

	record.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted id: %w", err)
	}

	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, output_path, language, duration_seconds, cost_usd, created_at
		FROM transcriptions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		var createdAt int64
		if err := rows.Scan(&record.ID, &record.Source, &record.OutputPath, &record.Language,
			&record.DurationSeconds, &record.CostUSD, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}

		record.CreatedAt = time.Unix(createdAt, 0).UTC()

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcriptions: %w", err)
	}

	return records, nil
}
