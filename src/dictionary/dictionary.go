// Package dictionary provides word lookup for the secondary selection and
// records the vocabulary seen in primary passes.
package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Lookup finds dictionary entries for a term. A term with no entries yields
// nil, nil.
type Lookup interface {
	Lookup(ctx context.Context, term string) ([]string, error)
}

// Nop never finds anything.
type Nop struct{}

func (Nop) Lookup(context.Context, string) ([]string, error) { return nil, nil }

const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    kanji   TEXT NOT NULL DEFAULT '',
    kana    TEXT NOT NULL DEFAULT '',
    gloss   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_kanji ON entries(kanji);
CREATE INDEX IF NOT EXISTS idx_entries_kana ON entries(kana);

CREATE TABLE IF NOT EXISTS vocabulary (
    word        TEXT PRIMARY KEY,
    count       INTEGER NOT NULL,
    first_seen  INTEGER NOT NULL,
    last_seen   INTEGER NOT NULL
);
`

// Entry is one dictionary row.
type Entry struct {
	Kanji string
	Kana  string
	Gloss string
}

func (e Entry) String() string {
	switch {
	case e.Kanji != "" && e.Kana != "":
		return fmt.Sprintf("%s【%s】 %s", e.Kanji, e.Kana, e.Gloss)
	case e.Kanji != "":
		return fmt.Sprintf("%s %s", e.Kanji, e.Gloss)
	default:
		return fmt.Sprintf("%s %s", e.Kana, e.Gloss)
	}
}

// Word is a vocabulary row.
type Word struct {
	Word      string
	Count     int
	FirstSeen time.Time
	LastSeen  time.Time
}

// SQLite stores dictionary entries and the vocabulary log in one database.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Lookup matches the trimmed term against kanji and kana headwords.
func (s *SQLite) Lookup(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kanji, kana, gloss FROM entries WHERE kanji = ? OR kana = ? ORDER BY id`, term, term)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Kanji, &e.Kana, &e.Gloss); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// AddEntries inserts dictionary rows in one transaction.
func (s *SQLite) AddEntries(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (kanji, kana, gloss) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Kanji, e.Kana, e.Gloss); err != nil {
			return fmt.Errorf("insert entry %q: %w", e.Kanji+e.Kana, err)
		}
	}
	return tx.Commit()
}

// SaveVocabulary counts each word once per call.
func (s *SQLite) SaveVocabulary(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vocabulary (word, count, first_seen, last_seen) VALUES (?, 1, ?, ?)
		ON CONFLICT(word) DO UPDATE SET count = count + 1, last_seen = excluded.last_seen`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := s.now().UnixNano()
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup || w == "" {
			continue
		}
		seen[w] = struct{}{}
		if _, err := stmt.ExecContext(ctx, w, now, now); err != nil {
			return fmt.Errorf("upsert vocabulary %q: %w", w, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vocabulary: %w", err)
	}
	s.logger.Debug("saved vocabulary", "words", len(seen))
	return nil
}

// Vocabulary lists recorded words, most frequent first.
func (s *SQLite) Vocabulary(ctx context.Context) ([]Word, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT word, count, first_seen, last_seen FROM vocabulary ORDER BY count DESC, word`)
	if err != nil {
		return nil, fmt.Errorf("query vocabulary: %w", err)
	}
	defer rows.Close()

	var out []Word
	for rows.Next() {
		var w Word
		var first, last int64
		if err := rows.Scan(&w.Word, &w.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		w.FirstSeen = time.Unix(0, first)
		w.LastSeen = time.Unix(0, last)
		out = append(out, w)
	}
	return out, rows.Err()
}
