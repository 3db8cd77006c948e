package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

func (s *SQLiteStore) lessonExists(ctx context.Context, id string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM lessons WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("library: check lesson: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddWritingAnswer(ctx context.Context, w WritingAnswer) (WritingAnswer, error) {
	w, err := prepareWriting(w)
	if err != nil {
		return WritingAnswer{}, err
	}
	if err := s.lessonExists(ctx, w.LessonID); err != nil {
		return WritingAnswer{}, err
	}
	var feedback sql.NullString
	if w.Feedback != nil {
		raw, err := json.Marshal(w.Feedback)
		if err != nil {
			return WritingAnswer{}, fmt.Errorf("library: encode feedback: %w", err)
		}
		feedback = sql.NullString{String: string(raw), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO writing_answers (id, lesson_id, text, reference, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.LessonID, w.Text, w.Reference, feedback, w.CreatedAt.Format(sqliteTimeLayout),
	)
	if err != nil {
		return WritingAnswer{}, fmt.Errorf("library: insert writing answer: %w", err)
	}
	engine.IncrLessonWrites()
	return w, nil
}

func (s *SQLiteStore) ListWritingAnswers(ctx context.Context, lessonID string) ([]WritingAnswer, error) {
	if err := validID(lessonID); err != nil {
		return nil, err
	}
	if err := s.lessonExists(ctx, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lesson_id, text, reference, feedback, created_at
		 FROM writing_answers WHERE lesson_id = ? ORDER BY created_at, rowid`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("library: list writing answers: %w", err)
	}
	defer rows.Close()

	answers := []WritingAnswer{}
	for rows.Next() {
		var (
			w                   WritingAnswer
			reference, feedback sql.NullString
			created             string
		)
		if err := rows.Scan(&w.ID, &w.LessonID, &w.Text, &reference, &feedback, &created); err != nil {
			return nil, fmt.Errorf("library: scan writing answer: %w", err)
		}
		w.Reference = reference.String
		if feedback.Valid {
			fb, err := decodeFeedback([]byte(feedback.String))
			if err != nil {
				return nil, fmt.Errorf("library: decode feedback of %s: %w", w.ID, err)
			}
			w.Feedback = fb
		}
		w.CreatedAt, _ = time.Parse(sqliteTimeLayout, created)
		answers = append(answers, w)
	}
	return answers, rows.Err()
}

func (s *SQLiteStore) MarkListened(ctx context.Context, lessonID string) (Progress, error) {
	if err := validID(lessonID); err != nil {
		return Progress{}, err
	}
	if err := s.lessonExists(ctx, lessonID); err != nil {
		return Progress{}, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (lesson_id, listen_count, last_listened_at) VALUES (?, 1, ?)
		 ON CONFLICT(lesson_id) DO UPDATE SET listen_count = listen_count + 1,
		   last_listened_at = excluded.last_listened_at`,
		lessonID, time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return Progress{}, fmt.Errorf("library: mark listened: %w", err)
	}
	engine.IncrLessonWrites()
	return s.GetProgress(ctx, lessonID)
}

func (s *SQLiteStore) GetProgress(ctx context.Context, lessonID string) (Progress, error) {
	if err := validID(lessonID); err != nil {
		return Progress{}, err
	}
	if err := s.lessonExists(ctx, lessonID); err != nil {
		return Progress{}, err
	}
	p := Progress{LessonID: lessonID}
	var listened sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT listen_count, last_listened_at FROM progress WHERE lesson_id = ?`, lessonID,
	).Scan(&p.ListenCount, &listened)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Progress{}, fmt.Errorf("library: get progress: %w", err)
	}
	if listened.Valid {
		p.LastListenedAt, _ = time.Parse(sqliteTimeLayout, listened.String)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(similarity), 0), COALESCE(MAX(similarity), 0)
		 FROM attempts WHERE lesson_id = ?`, lessonID,
	).Scan(&p.Attempts, &p.AverageSimilarity, &p.BestSimilarity)
	if err != nil {
		return Progress{}, fmt.Errorf("library: aggregate attempts: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM writing_answers WHERE lesson_id = ?`, lessonID,
	).Scan(&p.WritingAnswers)
	if err != nil {
		return Progress{}, fmt.Errorf("library: count writing answers: %w", err)
	}
	return p, nil
}
