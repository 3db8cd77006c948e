package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
)

func (s *PostgresStore) lessonExists(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lessons WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("library: check lesson: %w", err)
	}
	if !exists {
		return fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AddWritingAnswer(ctx context.Context, w WritingAnswer) (WritingAnswer, error) {
	w, err := prepareWriting(w)
	if err != nil {
		return WritingAnswer{}, err
	}
	var feedback []byte
	if w.Feedback != nil {
		if feedback, err = json.Marshal(w.Feedback); err != nil {
			return WritingAnswer{}, fmt.Errorf("library: encode feedback: %w", err)
		}
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO writing_answers (id, lesson_id, text, reference, feedback, created_at)
		 SELECT $1, id, $3, $4, $5, $6 FROM lessons WHERE id = $2`,
		w.ID, w.LessonID, w.Text, w.Reference, feedback, w.CreatedAt,
	)
	if err != nil {
		return WritingAnswer{}, fmt.Errorf("library: insert writing answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return WritingAnswer{}, fmt.Errorf("lesson %s: %w", w.LessonID, ErrNotFound)
	}
	engine.IncrLessonWrites()
	return w, nil
}

func (s *PostgresStore) ListWritingAnswers(ctx context.Context, lessonID string) ([]WritingAnswer, error) {
	if err := validID(lessonID); err != nil {
		return nil, err
	}
	if err := s.lessonExists(ctx, lessonID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, lesson_id, text, COALESCE(reference, ''), feedback, created_at
		 FROM writing_answers WHERE lesson_id = $1 ORDER BY created_at`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("library: list writing answers: %w", err)
	}
	answers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (WritingAnswer, error) {
		var (
			w        WritingAnswer
			feedback []byte
		)
		if err := row.Scan(&w.ID, &w.LessonID, &w.Text, &w.Reference, &feedback, &w.CreatedAt); err != nil {
			return w, err
		}
		if feedback != nil {
			fb, err := decodeFeedback(feedback)
			if err != nil {
				return w, fmt.Errorf("decode feedback of %s: %w", w.ID, err)
			}
			w.Feedback = fb
		}
		return w, nil
	})
	if err != nil {
		return nil, fmt.Errorf("library: scan writing answers: %w", err)
	}
	if answers == nil {
		answers = []WritingAnswer{}
	}
	return answers, nil
}

func (s *PostgresStore) MarkListened(ctx context.Context, lessonID string) (Progress, error) {
	if err := validID(lessonID); err != nil {
		return Progress{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO progress (lesson_id, listen_count, last_listened_at)
		 SELECT id, 1, now() FROM lessons WHERE id = $1
		 ON CONFLICT (lesson_id) DO UPDATE SET listen_count = progress.listen_count + 1,
		   last_listened_at = EXCLUDED.last_listened_at`,
		lessonID,
	)
	if err != nil {
		return Progress{}, fmt.Errorf("library: mark listened: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Progress{}, fmt.Errorf("lesson %s: %w", lessonID, ErrNotFound)
	}
	engine.IncrLessonWrites()
	return s.GetProgress(ctx, lessonID)
}

func (s *PostgresStore) GetProgress(ctx context.Context, lessonID string) (Progress, error) {
	if err := validID(lessonID); err != nil {
		return Progress{}, err
	}
	if err := s.lessonExists(ctx, lessonID); err != nil {
		return Progress{}, err
	}
	p := Progress{LessonID: lessonID}
	var listened *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT listen_count, last_listened_at FROM progress WHERE lesson_id = $1`, lessonID,
	).Scan(&p.ListenCount, &listened)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Progress{}, fmt.Errorf("library: get progress: %w", err)
	}
	if listened != nil {
		p.LastListenedAt = listened.UTC()
	}
	err = s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM attempts WHERE lesson_id = $1),
		   (SELECT COALESCE(AVG(similarity), 0) FROM attempts WHERE lesson_id = $1),
		   (SELECT COALESCE(MAX(similarity), 0) FROM attempts WHERE lesson_id = $1),
		   (SELECT COUNT(*) FROM writing_answers WHERE lesson_id = $1)`, lessonID,
	).Scan(&p.Attempts, &p.AverageSimilarity, &p.BestSimilarity, &p.WritingAnswers)
	if err != nil {
		return Progress{}, fmt.Errorf("library: aggregate progress: %w", err)
	}
	return p, nil
}
