// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/recallgrade/recallgrade/internal/domain/card"
	"github.com/recallgrade/recallgrade/internal/domain/review"
	"github.com/recallgrade/recallgrade/internal/grader"
)

const schema = `
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    front_html TEXT NOT NULL,
    back_html TEXT NOT NULL,
    note_type INTEGER NOT NULL,
    interval_days INTEGER NOT NULL,
    ease REAL NOT NULL,
    reps INTEGER NOT NULL,
    lapses INTEGER NOT NULL,
    due_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    card_id TEXT NOT NULL,
    answer TEXT NOT NULL,
    status TEXT NOT NULL,
    result TEXT,
    applied_rating INTEGER NOT NULL DEFAULT 0,
    submitted_at TEXT NOT NULL,
    graded_at TEXT,
    FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_reviews_card ON reviews(card_id, submitted_at);
`

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check: *SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Cards
// ============================================================================

func (s *SQLiteStore) SaveCard(ctx context.Context, c *card.Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, front_html, back_html, note_type, interval_days, ease, reps, lapses, due_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FrontHTML, c.BackHTML, int(c.NoteType),
		c.Schedule.IntervalDays, c.Schedule.Ease, c.Schedule.Reps, c.Schedule.Lapses,
		formatTime(c.Schedule.Due), formatTime(c.CreatedAt),
	)
	return err
}

func (s *SQLiteStore) GetCard(ctx context.Context, id string) (*card.Card, error) {
	var (
		c              card.Card
		noteType       int
		due, createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, front_html, back_html, note_type, interval_days, ease, reps, lapses, due_at, created_at
		FROM cards WHERE id = ?`, id,
	).Scan(&c.ID, &c.FrontHTML, &c.BackHTML, &noteType,
		&c.Schedule.IntervalDays, &c.Schedule.Ease, &c.Schedule.Reps, &c.Schedule.Lapses,
		&due, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.NoteType = card.NoteType(noteType)
	if c.Schedule.Due, err = parseTime(due); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ============================================================================
// Reviews
// ============================================================================

func (s *SQLiteStore) SaveReview(ctx context.Context, r *review.Review) error {
	result, err := encodeResult(r.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, card_id, answer, status, result, applied_rating, submitted_at, graded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CardID, r.Answer, string(r.Status), result, int(r.AppliedRating),
		formatTime(r.SubmittedAt), formatOptionalTime(r.GradedAt),
	)
	return err
}

func (s *SQLiteStore) UpdateReview(ctx context.Context, r *review.Review) error {
	return updateReview(ctx, s.db, r)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updateReview(ctx context.Context, db execer, r *review.Review) error {
	result, err := encodeResult(r.Result)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE reviews SET status = ?, result = ?, applied_rating = ?, graded_at = ?
		WHERE id = ?`,
		string(r.Status), result, int(r.AppliedRating), formatOptionalTime(r.GradedAt), r.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const reviewColumns = `id, card_id, answer, status, result, applied_rating, submitted_at, graded_at`

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*review.Review, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) ListReviews(ctx context.Context, cardID string) ([]*review.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE card_id = ? ORDER BY submitted_at, rowid", cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []*review.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStore) RateReview(ctx context.Context, r *review.Review, cardID string, sch card.Schedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateReview(ctx, tx, r); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE cards SET interval_days = ?, ease = ?, reps = ?, lapses = ?, due_at = ?
		WHERE id = ?`,
		sch.IntervalDays, sch.Ease, sch.Reps, sch.Lapses, formatTime(sch.Due), cardID,
	)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ============================================================================
// Helpers
// ============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(row scanner) (*review.Review, error) {
	var (
		r         review.Review
		status    string
		result    sql.NullString
		applied   int
		submitted string
		graded    sql.NullString
	)
	if err := row.Scan(&r.ID, &r.CardID, &r.Answer, &status, &result, &applied, &submitted, &graded); err != nil {
		return nil, err
	}

	r.Status = review.Status(status)
	r.AppliedRating = grader.Rating(applied)

	var err error
	if r.SubmittedAt, err = parseTime(submitted); err != nil {
		return nil, err
	}
	if graded.Valid {
		t, err := parseTime(graded.String)
		if err != nil {
			return nil, err
		}
		r.GradedAt = &t
	}
	if result.Valid {
		var ev grader.EvaluationResult
		if err := json.Unmarshal([]byte(result.String), &ev); err != nil {
			return nil, fmt.Errorf("decoding stored evaluation for review %s: %w", r.ID, err)
		}
		r.Result = &ev
	}
	return &r, nil
}

func encodeResult(result *grader.EvaluationResult) (sql.NullString, error) {
	if result == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding evaluation: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
