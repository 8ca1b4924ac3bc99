// Package storage persists notes and chat sessions in a local SQLite
// database. Collection-valued fields are stored as JSON text columns.
package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/00668901/pintar-ai/internal/chat"
	"github.com/00668901/pintar-ai/internal/notes"
	"github.com/00668901/pintar-ai/internal/quiz"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for notes and chat sessions.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "pintar.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Notes ---

// SaveNote inserts the note, or replaces the stored copy when the ID exists.
func (s *Store) SaveNote(n notes.Note) error {
	quizJSON, err := marshalJSON(n.Quiz)
	if err != nil {
		return fmt.Errorf("encoding quiz: %w", err)
	}
	blobsJSON, err := marshalJSON(n.SourceBlobs)
	if err != nil {
		return fmt.Errorf("encoding source blobs: %w", err)
	}
	namesJSON, err := marshalJSON(n.SourceNames)
	if err != nil {
		return fmt.Errorf("encoding source names: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO notes (id, title, content, quiz_json, source_blobs_json, source_names_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			quiz_json = excluded.quiz_json,
			source_blobs_json = excluded.source_blobs_json,
			source_names_json = excluded.source_names_json`,
		n.ID, n.Title, n.Content, quizJSON, blobsJSON, namesJSON,
		n.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetNote(id string) (notes.Note, error) {
	row := s.db.QueryRow(`
		SELECT id, title, content, quiz_json, source_blobs_json, source_names_json, created_at
		FROM notes WHERE id = ?`, id,
	)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return notes.Note{}, ErrNotFound
	}
	return n, err
}

// ListNotes returns all notes, newest first.
func (s *Store) ListNotes() ([]notes.Note, error) {
	rows, err := s.db.Query(`
		SELECT id, title, content, quiz_json, source_blobs_json, source_names_json, created_at
		FROM notes ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []notes.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func (s *Store) DeleteNote(id string) error {
	res, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (notes.Note, error) {
	var n notes.Note
	var quizJSON, blobsJSON, namesJSON, createdAt string
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &quizJSON, &blobsJSON, &namesJSON, &createdAt); err != nil {
		return notes.Note{}, err
	}
	if err := json.Unmarshal([]byte(quizJSON), &n.Quiz); err != nil {
		return notes.Note{}, fmt.Errorf("decoding quiz: %w", err)
	}
	if n.Quiz == nil {
		n.Quiz = []quiz.Question{}
	}
	if err := json.Unmarshal([]byte(blobsJSON), &n.SourceBlobs); err != nil {
		return notes.Note{}, fmt.Errorf("decoding source blobs: %w", err)
	}
	if err := json.Unmarshal([]byte(namesJSON), &n.SourceNames); err != nil {
		return notes.Note{}, fmt.Errorf("decoding source names: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return notes.Note{}, fmt.Errorf("parsing created_at: %w", err)
	}
	n.CreatedAt = t
	return n, nil
}

// --- Sessions ---

// SaveSession inserts the session, or replaces the stored copy when the ID
// exists. Every chat turn ends with a full-object overwrite.
func (s *Store) SaveSession(session chat.Session) error {
	messagesJSON, err := marshalJSON(session.Messages)
	if err != nil {
		return fmt.Errorf("encoding messages: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, title, messages_json, last_modified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			messages_json = excluded.messages_json,
			last_modified = excluded.last_modified`,
		session.ID, session.Title, messagesJSON,
		session.LastModified.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetSession(id string) (chat.Session, error) {
	row := s.db.QueryRow(`
		SELECT id, title, messages_json, last_modified
		FROM sessions WHERE id = ?`, id,
	)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return chat.Session{}, ErrNotFound
	}
	return session, err
}

// ListSessions returns all sessions, most recently active first.
func (s *Store) ListSessions() ([]chat.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, title, messages_json, last_modified
		FROM sessions ORDER BY last_modified DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []chat.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, session)
	}
	return results, rows.Err()
}

func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(row rowScanner) (chat.Session, error) {
	var session chat.Session
	var messagesJSON, lastModified string
	if err := row.Scan(&session.ID, &session.Title, &messagesJSON, &lastModified); err != nil {
		return chat.Session{}, err
	}
	if err := json.Unmarshal([]byte(messagesJSON), &session.Messages); err != nil {
		return chat.Session{}, fmt.Errorf("decoding messages: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, lastModified)
	if err != nil {
		return chat.Session{}, fmt.Errorf("parsing last_modified: %w", err)
	}
	session.LastModified = t
	return session, nil
}

// marshalJSON encodes v, mapping nil slices to empty JSON arrays so reads
// never see null collections.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(b)
	if s == "null" {
		s = "[]"
	}
	return s, nil
}
