package elementstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// New creates a new SQLite-backed element store
func New(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertElement inserts or replaces an element record by id
func (s *SQLiteStore) UpsertElement(ctx context.Context, record *types.ElementRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid element record: %w", err)
	}

	keywords, err := encodeSet(record.Keywords)
	if err != nil {
		return err
	}
	tags, err := encodeSet(record.Tags)
	if err != nil {
		return err
	}
	triggers, err := encodeSet(record.ActionTriggers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO elements (id, element_type, name, description, keywords, tags, action_triggers, raw_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			element_type = excluded.element_type,
			name = excluded.name,
			description = excluded.description,
			keywords = excluded.keywords,
			tags = excluded.tags,
			action_triggers = excluded.action_triggers,
			raw_text = excluded.raw_text,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		record.ID, string(record.ElementType), record.Name, record.Description,
		keywords, tags, triggers, record.RawText, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert element %s: %w", record.ID, err)
	}
	return nil
}

// GetElement retrieves one element by id
func (s *SQLiteStore) GetElement(ctx context.Context, id string) (*types.ElementRecord, error) {
	query := `
		SELECT id, element_type, name, description, keywords, tags, action_triggers, raw_text
		FROM elements WHERE id = ?
	`
	record, err := scanElement(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("element %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get element %s: %w", id, err)
	}
	return record, nil
}

// DeleteElement removes an element by id. Deleting an absent element is
// ErrNotFound so callers can report it.
func (s *SQLiteStore) DeleteElement(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM elements WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete element %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("element %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// ListElements enumerates all elements in id order
func (s *SQLiteStore) ListElements(ctx context.Context) ([]types.ElementRecord, error) {
	query := `
		SELECT id, element_type, name, description, keywords, tags, action_triggers, raw_text
		FROM elements ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.ElementRecord
	for rows.Next() {
		record, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list elements: %w", err)
	}
	return records, nil
}

// CountElements returns the number of stored elements
func (s *SQLiteStore) CountElements(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM elements").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count elements: %w", err)
	}
	return count, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanElement(row scanner) (*types.ElementRecord, error) {
	var record types.ElementRecord
	var elementType, keywords, tags, triggers string

	err := row.Scan(&record.ID, &elementType, &record.Name, &record.Description,
		&keywords, &tags, &triggers, &record.RawText)
	if err != nil {
		return nil, err
	}

	record.ElementType = types.ElementType(elementType)
	if record.Keywords, err = decodeSet(keywords); err != nil {
		return nil, err
	}
	if record.Tags, err = decodeSet(tags); err != nil {
		return nil, err
	}
	if record.ActionTriggers, err = decodeSet(triggers); err != nil {
		return nil, err
	}
	return &record, nil
}

func encodeSet(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode set: %w", err)
	}
	return string(data), nil
}

func decodeSet(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to decode set: %w", err)
	}
	return values, nil
}
