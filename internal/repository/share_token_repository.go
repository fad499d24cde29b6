package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/landport/freight-api/internal/model"
)

// ErrShareTokenNotFound is returned for an unknown or expired share token.
// The two cases are deliberately indistinguishable to the caller.
var ErrShareTokenNotFound = errors.New("share token not found")

// ShareTokenRepo provides access to certificate_share_tokens.
type ShareTokenRepo struct {
	db *sql.DB
}

// NewShareTokenRepo constructs a ShareTokenRepo.
func NewShareTokenRepo(db *sql.DB) *ShareTokenRepo {
	return &ShareTokenRepo{db: db}
}

// Create inserts a share token.  On success the ID is populated.
func (r *ShareTokenRepo) Create(ctx context.Context, t *model.CertificateShareToken) error {
	const q = `INSERT INTO certificate_share_tokens (token, vehicle_id, expire_at) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.Token, t.VehicleID, t.ExpireAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetValid retrieves a token that has not expired yet.
func (r *ShareTokenRepo) GetValid(ctx context.Context, token string, now time.Time) (*model.CertificateShareToken, error) {
	const q = `SELECT id, token, vehicle_id, expire_at, use_count, created_at
	           FROM certificate_share_tokens WHERE token = ? AND expire_at > ?`
	var t model.CertificateShareToken
	err := r.db.QueryRowContext(ctx, q, token, now.UTC()).
		Scan(&t.ID, &t.Token, &t.VehicleID, &t.ExpireAt, &t.UseCount, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShareTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// IncrementUse bumps the view counter; views are unlimited, the counter is
// for the owner's information only.
func (r *ShareTokenRepo) IncrementUse(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE certificate_share_tokens SET use_count = use_count + 1 WHERE id = ?`, id)
	return err
}
