package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS lessons (
	id                TEXT PRIMARY KEY,
	platform          TEXT NOT NULL,
	video_id          TEXT,
	url               TEXT NOT NULL,
	title             TEXT NOT NULL,
	level             TEXT NOT NULL DEFAULT 'beginner',
	segments          TEXT NOT NULL,
	transcript_source TEXT,
	created_at        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
	id         TEXT PRIMARY KEY,
	lesson_id  TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
	segment_id TEXT,
	said       TEXT NOT NULL,
	expected   TEXT NOT NULL,
	similarity REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS attempts_lesson_idx ON attempts(lesson_id, created_at);
CREATE TABLE IF NOT EXISTS writing_answers (
	id         TEXT PRIMARY KEY,
	lesson_id  TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	reference  TEXT,
	feedback   TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS writing_answers_lesson_idx ON writing_answers(lesson_id, created_at);
CREATE TABLE IF NOT EXISTS progress (
	lesson_id        TEXT PRIMARY KEY REFERENCES lessons(id) ON DELETE CASCADE,
	listen_count     INTEGER NOT NULL DEFAULT 0,
	last_listened_at TEXT
);
`

// Fixed width so text order is time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps the library in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultSQLitePath is ~/.go_sayfluent/library.db.
func DefaultSQLitePath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_sayfluent", "library.db")
}

// OpenSQLite opens (or creates) the library database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("library: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("library: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("library: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveLesson(ctx context.Context, l Lesson) (Lesson, error) {
	l, err := prepareLesson(l)
	if err != nil {
		return Lesson{}, err
	}
	segs, err := json.Marshal(l.Segments)
	if err != nil {
		return Lesson{}, fmt.Errorf("library: encode segments: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, platform, video_id, url, title, level, segments, transcript_source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title=excluded.title, level=excluded.level,
		   segments=excluded.segments, transcript_source=excluded.transcript_source`,
		l.ID, string(l.Platform), l.VideoID, l.URL, l.Title, string(l.Level),
		string(segs), string(l.TranscriptSource), l.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return Lesson{}, fmt.Errorf("library: insert lesson: %w", err)
	}
	engine.IncrLessonWrites()
	return l, nil
}

const lessonColumns = `id, platform, video_id, url, title, level, segments, transcript_source, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (Lesson, error) {
	var (
		l                        Lesson
		platform, level, created string
		videoID, source          sql.NullString
		segs                     string
	)
	if err := row.Scan(&l.ID, &platform, &videoID, &l.URL, &l.Title, &level, &segs, &source, &created); err != nil {
		return Lesson{}, err
	}
	l.Platform = engine.Platform(platform)
	l.Level = Level(level)
	l.VideoID = videoID.String
	l.TranscriptSource = engine.TranscriptSource(source.String)
	if err := json.Unmarshal([]byte(segs), &l.Segments); err != nil {
		return Lesson{}, fmt.Errorf("library: decode segments of %s: %w", l.ID, err)
	}
	l.Segments = engine.NormalizeSegments(l.Segments)
	l.CreatedAt, _ = time.Parse(sqliteTimeLayout, created)
	return l, nil
}

func (s *SQLiteStore) GetLesson(ctx context.Context, id string) (Lesson, error) {
	if err := validID(id); err != nil {
		return Lesson{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Lesson{}, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Lesson{}, fmt.Errorf("library: get lesson: %w", err)
	}
	return l, nil
}

func (s *SQLiteStore) ListLessons(ctx context.Context, f ListFilter) ([]Lesson, error) {
	var (
		where []string
		args  []any
	)
	if f.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, string(f.Platform))
	}
	if f.Level != "" {
		level, err := ParseLevel(string(f.Level))
		if err != nil {
			return nil, err
		}
		where = append(where, "level = ?")
		args = append(args, string(level))
	}
	q := `SELECT ` + lessonColumns + ` FROM lessons`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, f.limit())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("library: list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (s *SQLiteStore) DeleteLesson(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	// attempts, writing answers and progress go with the lesson through ON DELETE CASCADE.
	res, err := s.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("library: delete lesson: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	engine.IncrLessonWrites()
	return nil
}

func (s *SQLiteStore) AddAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a, err := prepareAttempt(a)
	if err != nil {
		return Attempt{}, err
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM lessons WHERE id = ?`, a.LessonID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("lesson %s: %w", a.LessonID, ErrNotFound)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("library: check lesson: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, lesson_id, segment_id, said, expected, similarity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.LessonID, a.SegmentID, a.Said, a.Expected, a.Similarity, a.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return Attempt{}, fmt.Errorf("library: insert attempt: %w", err)
	}
	engine.IncrLessonWrites()
	return a, nil
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, lessonID string) ([]Attempt, error) {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lesson_id, segment_id, said, expected, similarity, created_at
		 FROM attempts WHERE lesson_id = ? ORDER BY created_at, rowid`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("library: list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var (
			a       Attempt
			segID   sql.NullString
			created string
		)
		if err := rows.Scan(&a.ID, &a.LessonID, &segID, &a.Said, &a.Expected, &a.Similarity, &created); err != nil {
			return nil, fmt.Errorf("library: scan attempt: %w", err)
		}
		a.SegmentID = segID.String
		a.CreatedAt, _ = time.Parse(sqliteTimeLayout, created)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
