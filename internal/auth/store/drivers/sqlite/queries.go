package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories run the
// same queries inside and outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db DBTX
}

const getUserByID = `SELECT id, email, name, picture, created_at, updated_at FROM users WHERE id = ?`

const getUserByEmail = `SELECT id, email, name, picture, created_at, updated_at FROM users WHERE email = ?`

const createUser = `INSERT INTO users (id, email, name, picture, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

const updateUserProfile = `UPDATE users SET name = ?, picture = ?, updated_at = ? WHERE id = ?`

const deleteUser = `DELETE FROM users WHERE id = ?`

const createSession = `INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`

const getSessionByHash = `SELECT id, user_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = ? AND expires_at > ?`

const deleteSessionByHash = `DELETE FROM sessions WHERE token_hash = ?`

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at <= ?`

type userRow struct {
	ID        string
	Email     string
	Name      string
	Picture   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *queries) getUser(ctx context.Context, query, arg string) (userRow, error) {
	var r userRow
	err := q.db.QueryRowContext(ctx, query, arg).
		Scan(&r.ID, &r.Email, &r.Name, &r.Picture, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

type sessionRow struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (q *queries) getSession(ctx context.Context, hash string, now time.Time) (sessionRow, error) {
	var r sessionRow
	err := q.db.QueryRowContext(ctx, getSessionByHash, hash, now).
		Scan(&r.ID, &r.UserID, &r.TokenHash, &r.ExpiresAt, &r.CreatedAt)
	return r, err
}
