package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
)

type sessionsRepo struct {
	q *queries
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.SessionRecord) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.q.db.ExecContext(ctx, createSession,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt.UTC(), created.UTC())
	return err
}

func (r *sessionsRepo) GetSessionByHash(ctx context.Context, hash string) (domain.SessionRecord, error) {
	row, err := r.q.getSession(ctx, hash, time.Now().UTC())
	if err != nil {
		return domain.SessionRecord{}, mapNotFound(err)
	}
	return domain.SessionRecord(row), nil
}

func (r *sessionsRepo) DeleteSessionByHash(ctx context.Context, hash string) error {
	_, err := r.q.db.ExecContext(ctx, deleteSessionByHash, hash)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.q.db.ExecContext(ctx, deleteExpiredSessions, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
