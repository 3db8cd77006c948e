package library

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PostgresStore keeps the library in Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pgx pool and runs schema migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("library postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveLesson(ctx context.Context, l Lesson) (Lesson, error) {
	l, err := prepareLesson(l)
	if err != nil {
		return Lesson{}, err
	}
	segs, err := json.Marshal(l.Segments)
	if err != nil {
		return Lesson{}, fmt.Errorf("library: encode segments: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO lessons (id, platform, video_id, url, title, level, segments, transcript_source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, level = EXCLUDED.level,
		   segments = EXCLUDED.segments, transcript_source = EXCLUDED.transcript_source`,
		l.ID, string(l.Platform), l.VideoID, l.URL, l.Title, string(l.Level),
		segs, string(l.TranscriptSource), l.CreatedAt,
	)
	if err != nil {
		return Lesson{}, fmt.Errorf("library: insert lesson: %w", err)
	}
	engine.IncrLessonWrites()
	return l, nil
}

func scanPGLesson(row pgx.Row) (Lesson, error) {
	var (
		l               Lesson
		platform, level string
		videoID, source *string
		segs            []byte
	)
	if err := row.Scan(&l.ID, &platform, &videoID, &l.URL, &l.Title, &level, &segs, &source, &l.CreatedAt); err != nil {
		return Lesson{}, err
	}
	l.Platform = engine.Platform(platform)
	l.Level = Level(level)
	if videoID != nil {
		l.VideoID = *videoID
	}
	if source != nil {
		l.TranscriptSource = engine.TranscriptSource(*source)
	}
	if err := json.Unmarshal(segs, &l.Segments); err != nil {
		return Lesson{}, fmt.Errorf("library: decode segments of %s: %w", l.ID, err)
	}
	l.Segments = engine.NormalizeSegments(l.Segments)
	return l, nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, id string) (Lesson, error) {
	if err := validID(id); err != nil {
		return Lesson{}, err
	}
	l, err := scanPGLesson(s.pool.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lesson{}, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Lesson{}, fmt.Errorf("library: get lesson: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) ListLessons(ctx context.Context, f ListFilter) ([]Lesson, error) {
	var (
		where []string
		args  []any
	)
	if f.Platform != "" {
		args = append(args, string(f.Platform))
		where = append(where, fmt.Sprintf("platform = $%d", len(args)))
	}
	if f.Level != "" {
		level, err := ParseLevel(string(f.Level))
		if err != nil {
			return nil, err
		}
		args = append(args, string(level))
		where = append(where, fmt.Sprintf("level = $%d", len(args)))
	}
	q := `SELECT ` + lessonColumns + ` FROM lessons`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.limit())
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("library: list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []Lesson{}
	for rows.Next() {
		l, err := scanPGLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (s *PostgresStore) DeleteLesson(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("library: delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	engine.IncrLessonWrites()
	return nil
}

func (s *PostgresStore) AddAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	a, err := prepareAttempt(a)
	if err != nil {
		return Attempt{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (id, lesson_id, segment_id, said, expected, similarity, created_at)
		 SELECT $1, id, $3, $4, $5, $6, $7 FROM lessons WHERE id = $2`,
		a.ID, a.LessonID, a.SegmentID, a.Said, a.Expected, a.Similarity, a.CreatedAt,
	)
	if err != nil {
		return Attempt{}, fmt.Errorf("library: insert attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Attempt{}, fmt.Errorf("lesson %s: %w", a.LessonID, ErrNotFound)
	}
	engine.IncrLessonWrites()
	return a, nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, lessonID string) ([]Attempt, error) {
	if _, err := s.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, lesson_id, COALESCE(segment_id, ''), said, expected, similarity, created_at
		 FROM attempts WHERE lesson_id = $1 ORDER BY created_at`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("library: list attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attempt, error) {
		var a Attempt
		err := row.Scan(&a.ID, &a.LessonID, &a.SegmentID, &a.Said, &a.Expected, &a.Similarity, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("library: scan attempts: %w", err)
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}
