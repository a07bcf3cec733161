package transcript

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Record is one archived exchange.
type Record struct {
	SessionID   string    `json:"session_id"`
	UserMessage string    `json:"user"`
	BotResponse string    `json:"bot"`
	Intent      string    `json:"intent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Append stores rec. A zero CreatedAt is replaced by the current time.
func (a *Archive) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO exchanges (session_id, user_message, bot_response, intent, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.UserMessage, rec.BotResponse, rec.Intent, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("transcript: append: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest records for a session, oldest first.
func (a *Archive) Recent(ctx context.Context, sessionID string, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT session_id, user_message, bot_response, intent, created_at
		FROM exchanges
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("transcript: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []Record{}
	for rows.Next() {
		var (
			rec  Record
			nano int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.UserMessage, &rec.BotResponse, &rec.Intent, &nano); err != nil {
			return nil, fmt.Errorf("transcript: scan: %w", err)
		}
		rec.CreatedAt = time.Unix(0, nano)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: recent rows: %w", err)
	}

	// Reverse to chronological order.
	slices.Reverse(records)
	return records, nil
}

// Count returns the number of records stored for a session.
func (a *Archive) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM exchanges WHERE session_id = ?", sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("transcript: count: %w", err)
	}
	return n, nil
}

// DeleteSession removes every record of a session and returns how many
// were removed.
func (a *Archive) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM exchanges WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("transcript: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transcript: delete session: %w", err)
	}
	return n, nil
}

// PruneBefore removes every record created strictly before cutoff.
func (a *Archive) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, "DELETE FROM exchanges WHERE created_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("transcript: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transcript: prune: %w", err)
	}
	return n, nil
}
