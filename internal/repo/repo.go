package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"twaforge/internal/domain"
)

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = errors.New("not found")

func (r Repo) now() string {
	if r.Now != nil {
		return r.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// GetSlot returns the raw value stored under key; ok is false when absent.
func (r Repo) GetSlot(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM slots WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// PutSlot replaces the value stored under key.
func (r Repo) PutSlot(ctx context.Context, key string, value []byte) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO slots(key,value,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, string(value), r.now())
	return err
}

func (r Repo) DeleteSlot(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM slots WHERE key=?`, key)
	return err
}

func (r Repo) InsertSession(ctx context.Context, id string, stateJSON []byte) error {
	now := r.now()
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,state_json,created_at,updated_at) VALUES (?,?,?,?)`,
		id, string(stateJSON), now, now)
	return err
}

func (r Repo) GetSession(ctx context.Context, id string) ([]byte, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT state_json FROM sessions WHERE id=?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

func (r Repo) UpdateSession(ctx context.Context, id string, stateJSON []byte) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE sessions SET state_json=?, updated_at=? WHERE id=?`, string(stateJSON), r.now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteSession(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSessionsBefore removes sessions untouched since the cutoff.
func (r Repo) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EventFilters narrows LatestEvents.
type EventFilters struct {
	Limit     int
	Type      string
	SessionID string
}

// LatestEvents returns the newest events first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.SessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, f.SessionID)
	}
	query := `SELECT id,ts,type,COALESCE(session_id,''),payload_json FROM events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &e.PayloadJSON); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
