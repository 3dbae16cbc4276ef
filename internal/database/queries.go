package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalsum/internal/domain"
)

func (d *Database) AddSummary(ctx context.Context, r domain.SummaryRecord) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("summary ID is empty")
	}

	if strings.TrimSpace(r.Summary) == "" {
		return errors.New("summary is empty")
	}

	query := `insert into summaries (id, text_hash, text_preview, summary, processing_ms, created_at)
	values (?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		r.ID,
		r.TextHash,
		r.TextPreview,
		r.Summary,
		r.ProcessingTime.Milliseconds(),
		r.CreatedAt.UTC(),
	)

	return err
}

func (d *Database) GetRecentSummaries(ctx context.Context, limit int) ([]domain.SummaryRecord, error) {
	query := `select id, text_hash, text_preview, summary, processing_ms, created_at
	from summaries
	order by created_at desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"limit", limit,
				"operation", "GetRecentSummaries")
		}
	}()

	var records []domain.SummaryRecord
	for rows.Next() {
		var (
			r            domain.SummaryRecord
			processingMS int64
		)
		if err = rows.Scan(&r.ID, &r.TextHash, &r.TextPreview, &r.Summary, &processingMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.ProcessingTime = time.Duration(processingMS) * time.Millisecond
		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return records, nil
}

func (d *Database) DeleteSummariesBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, "delete from summaries where created_at < ?", before.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (d *Database) HasJudgment(ctx context.Context, url string) (bool, error) {
	var exists bool

	err := d.db.QueryRowContext(ctx,
		"select exists(select 1 from judgments where url = ?)",
		strings.TrimSpace(url),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to execute query: %w", err)
	}

	return exists, nil
}

func (d *Database) AddJudgment(ctx context.Context, j domain.Judgment) error {
	j.URL = strings.TrimSpace(j.URL)
	if j.URL == "" {
		return errors.New("judgment URL is empty")
	}

	j.Title = strings.TrimSpace(j.Title)
	if j.Title == "" {
		j.Title = j.URL
	}

	var publishedAt sql.NullTime
	if !j.PublishedAt.IsZero() {
		publishedAt = sql.NullTime{Time: j.PublishedAt.UTC(), Valid: true}
	}

	query := `insert or ignore into judgments (feed_url, url, title, summary, published_at, created_at)
	values (?, ?, ?, ?, ?, ?)`

	_, err := d.db.ExecContext(ctx, query,
		strings.TrimSpace(j.FeedURL),
		j.URL,
		j.Title,
		j.Summary,
		publishedAt,
		j.CreatedAt.UTC(),
	)

	return err
}

func (d *Database) GetRecentJudgments(ctx context.Context, limit int) ([]domain.Judgment, error) {
	query := `select id, feed_url, url, title, summary, published_at, created_at
	from judgments
	order by created_at desc, id desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"limit", limit,
				"operation", "GetRecentJudgments")
		}
	}()

	var judgments []domain.Judgment
	for rows.Next() {
		var (
			j           domain.Judgment
			publishedAt sql.NullTime
		)
		if err = rows.Scan(&j.ID, &j.FeedURL, &j.URL, &j.Title, &j.Summary, &publishedAt, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if publishedAt.Valid {
			j.PublishedAt = publishedAt.Time
		}
		judgments = append(judgments, j)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return judgments, nil
}

func (d *Database) UpsertCheckpoint(ctx context.Context, c domain.Checkpoint) error {
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		return errors.New("checkpoint path is empty")
	}

	query := `insert into checkpoints (path, step, final, created_at)
	values (?, ?, ?, ?)
	on conflict (path) do update
	set step = excluded.step, final = excluded.final, created_at = excluded.created_at`

	_, err := d.db.ExecContext(ctx, query, c.Path, c.Step, c.Final, c.CreatedAt.UTC())

	return err
}

func (d *Database) GetCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	query := `select id, path, step, final, created_at
	from checkpoints
	order by final asc, step asc, id asc`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"operation", "GetCheckpoints")
		}
	}()

	var checkpoints []domain.Checkpoint
	for rows.Next() {
		var c domain.Checkpoint
		if err = rows.Scan(&c.ID, &c.Path, &c.Step, &c.Final, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		checkpoints = append(checkpoints, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return checkpoints, nil
}
