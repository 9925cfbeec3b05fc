package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emariqueo1/clasificador-salcobrand/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// MaxListLimit bounds ListAll regardless of the requested limit.
const MaxListLimit = 1000

// ErrStorage marks every failure coming from the database layer.
var ErrStorage = errors.New("storage error")

type Store struct {
	db *sql.DB
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// InitDB opens the database at path and makes sure the schema exists.
// Safe to call repeatedly on the same file.
func InitDB(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, storageErr("open database", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS classifications (
		id                      INTEGER PRIMARY KEY AUTOINCREMENT,
		product                 TEXT NOT NULL,
		manufacturer            TEXT DEFAULT 'N/A',
		category_code           TEXT NOT NULL,
		packaging_type          TEXT DEFAULT '',
		has_secondary_packaging TEXT DEFAULT '',
		reasoning               TEXT DEFAULT '',
		shrinkage_risk          TEXT DEFAULT '',
		web_source_note         TEXT DEFAULT '',
		submitted_by            TEXT DEFAULT '',
		classified_at           TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_classifications_classified_at ON classifications(classified_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storageErr("create schema", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends rec and returns the id assigned by the database.
func (s *Store) Insert(ctx context.Context, rec domain.NewRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO classifications
		 (product, manufacturer, category_code, packaging_type, has_secondary_packaging,
		  reasoning, shrinkage_risk, web_source_note, submitted_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Product, domain.NormalizeManufacturer(rec.Manufacturer), string(rec.CategoryCode),
		rec.PackagingType, rec.HasSecondaryPackaging, rec.Reasoning,
		string(rec.ShrinkageRisk), rec.WebSourceNote, rec.SubmittedBy,
	)
	if err != nil {
		return 0, storageErr("insert classification", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert classification", err)
	}
	return id, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ListAll returns up to limit records, newest first. Records sharing a
// timestamp are ordered by id so insertion order is still respected.
func (s *Store) ListAll(ctx context.Context, limit int) ([]domain.ClassificationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product, manufacturer, category_code, packaging_type, has_secondary_packaging,
		        reasoning, shrinkage_risk, web_source_note, submitted_by, classified_at
		 FROM classifications
		 ORDER BY classified_at DESC, id DESC
		 LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, storageErr("list classifications", err)
	}
	defer rows.Close()

	out := make([]domain.ClassificationRecord, 0)
	for rows.Next() {
		var r domain.ClassificationRecord
		var category, risk string
		if err := rows.Scan(
			&r.ID, &r.Product, &r.Manufacturer, &category, &r.PackagingType,
			&r.HasSecondaryPackaging, &r.Reasoning, &risk, &r.WebSourceNote,
			&r.SubmittedBy, &r.ClassifiedAt,
		); err != nil {
			return nil, storageErr("scan classification", err)
		}
		r.CategoryCode = domain.CategoryCode(category)
		r.ShrinkageRisk = domain.ShrinkageRisk(risk)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list classifications", err)
	}
	return out, nil
}

// Clear removes every record. AUTOINCREMENT keeps the id sequence going;
// callers must not rely on that.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM classifications`); err != nil {
		return storageErr("clear classifications", err)
	}
	return nil
}

// CountByCategory counts records classified at or after since, one entry per
// category present, largest first.
func (s *Store) CountByCategory(ctx context.Context, since time.Time) ([]domain.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category_code, COUNT(*) AS cnt
		 FROM classifications
		 WHERE classified_at >= ?
		 GROUP BY category_code
		 ORDER BY cnt DESC, category_code`,
		since.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return nil, storageErr("count classifications", err)
	}
	defer rows.Close()

	var out []domain.CategoryCount
	for rows.Next() {
		var c domain.CategoryCount
		var category string
		if err := rows.Scan(&category, &c.Count); err != nil {
			return nil, storageErr("scan category count", err)
		}
		c.CategoryCode = domain.CategoryCode(category)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("count classifications", err)
	}
	return out, nil
}
