package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultLimit is how many rows History and Stats return when limit <= 0
const DefaultLimit = 10

// timestamps are stored as ISO-8601 with seconds precision and an explicit offset
const tsLayout = "2006-01-02T15:04:05-07:00"

// HistoryRow is one answered query
type HistoryRow struct {
	Timestamp string
	Query     string
	Title     string // empty when nothing was found
	URL       string // empty when no link was found
}

// StatRow counts how often a title was suggested to a user
type StatRow struct {
	Title string
	Count int
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// AddHistory appends a history row stamped with the current UTC time
func (s *Store) AddHistory(ctx context.Context, userID int64, query, title, url string) error {
	return s.addHistoryAt(ctx, time.Now(), userID, query, title, url)
}

func (s *Store) addHistoryAt(ctx context.Context, at time.Time, userID int64, query, title, url string) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO history(user_id, ts, query, title, url) VALUES(?, ?, ?, ?, ?)`),
		userID, at.UTC().Format(tsLayout), query, nullable(title), nullable(url),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// IncStat bumps the suggestion counter of title for userID
func (s *Store) IncStat(ctx context.Context, userID int64, title string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO stats(user_id, title, count) VALUES(?, ?, 1)
		ON CONFLICT(user_id, title) DO UPDATE SET count = stats.count + 1
	`), userID, title)
	if err != nil {
		return fmt.Errorf("upsert stat: %w", err)
	}
	return nil
}

// History returns the newest rows first
func (s *Store) History(ctx context.Context, userID int64, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT ts, query, title, url FROM history WHERE user_id = ? ORDER BY id DESC LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []HistoryRow
	for rows.Next() {
		var (
			r          HistoryRow
			title, url sql.NullString
		)
		if err := rows.Scan(&r.Timestamp, &r.Query, &title, &url); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.Title = title.String
		r.URL = url.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats returns the most suggested titles, ties broken alphabetically
func (s *Store) Stats(ctx context.Context, userID int64, limit int) ([]StatRow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT title, count FROM stats WHERE user_id = ? ORDER BY count DESC, title ASC LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StatRow
	for rows.Next() {
		var r StatRow
		if err := rows.Scan(&r.Title, &r.Count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
