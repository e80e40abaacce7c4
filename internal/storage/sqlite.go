// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/corpus"
	"github.com/PriyamJChakrabarty/Smart-Telecom-Helpline-AI-Agent/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS faqs (
		key TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		variations TEXT,
		answer TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_faqs_created_at ON faqs(created_at);
	CREATE INDEX IF NOT EXISTS idx_faqs_category ON faqs(category);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateFAQ inserts a FAQ entry.
func (s *SQLiteStorage) CreateFAQ(ctx context.Context, faq *models.FAQEntry) error {
	variationsJSON, err := json.Marshal(faq.Variations)
	if err != nil {
		return fmt.Errorf("failed to marshal variations: %w", err)
	}

	now := time.Now()
	faq.CreatedAt = now
	faq.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO faqs (key, question, variations, answer, category, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		faq.Key, faq.Question, string(variationsJSON), faq.Answer, faq.Category,
		faq.CreatedAt, faq.UpdatedAt,
	)
	return err
}

// GetFAQ returns a FAQ entry by key.
func (s *SQLiteStorage) GetFAQ(ctx context.Context, key string) (*models.FAQEntry, error) {
	var faq models.FAQEntry
	var variationsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT key, question, variations, answer, category, created_at, updated_at
		 FROM faqs WHERE key = ?`, key,
	).Scan(&faq.Key, &faq.Question, &variationsJSON, &faq.Answer, &faq.Category,
		&faq.CreatedAt, &faq.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	if variationsJSON != "" {
		if err := json.Unmarshal([]byte(variationsJSON), &faq.Variations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variations: %w", err)
		}
	}

	return &faq, nil
}

// UpdateFAQ updates an existing FAQ entry.
func (s *SQLiteStorage) UpdateFAQ(ctx context.Context, faq *models.FAQEntry) error {
	variationsJSON, err := json.Marshal(faq.Variations)
	if err != nil {
		return fmt.Errorf("failed to marshal variations: %w", err)
	}

	faq.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE faqs SET question = ?, variations = ?, answer = ?, category = ?, updated_at = ?
		 WHERE key = ?`,
		faq.Question, string(variationsJSON), faq.Answer, faq.Category, faq.UpdatedAt, faq.Key,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, faq.Key)
	}
	return nil
}

// DeleteFAQ removes a FAQ entry by key.
func (s *SQLiteStorage) DeleteFAQ(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM faqs WHERE key = ?`, key)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// ListFAQs returns FAQ entries with offset and limit, oldest first. The
// (created_at, key) ordering keeps the listing stable across calls even
// when rows share a timestamp.
func (s *SQLiteStorage) ListFAQs(ctx context.Context, offset, limit int) ([]*models.FAQEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, question, variations, answer, category, created_at, updated_at
		 FROM faqs ORDER BY created_at, key LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []*models.FAQEntry
	for rows.Next() {
		var faq models.FAQEntry
		var variationsJSON string
		if err := rows.Scan(&faq.Key, &faq.Question, &variationsJSON, &faq.Answer,
			&faq.Category, &faq.CreatedAt, &faq.UpdatedAt); err != nil {
			return nil, err
		}
		if variationsJSON != "" {
			_ = json.Unmarshal([]byte(variationsJSON), &faq.Variations)
		}
		faqs = append(faqs, &faq)
	}
	return faqs, rows.Err()
}

// CountFAQs returns the number of stored FAQ entries.
func (s *SQLiteStorage) CountFAQs(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faqs`).Scan(&count)
	return count, err
}

// Corpus materializes every stored FAQ in insertion order with positional
// IDs assigned, ready for an index build.
func (s *SQLiteStorage) Corpus(ctx context.Context) ([]models.FAQ, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, question, variations, answer, category, created_at, updated_at
		 FROM faqs ORDER BY created_at, key`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var faqs []models.FAQ
	for rows.Next() {
		var entry models.FAQEntry
		var variationsJSON string
		if err := rows.Scan(&entry.Key, &entry.Question, &variationsJSON, &entry.Answer,
			&entry.Category, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		if variationsJSON != "" {
			_ = json.Unmarshal([]byte(variationsJSON), &entry.Variations)
		}
		faqs = append(faqs, entry.FAQ(0))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return corpus.Assign(faqs)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
