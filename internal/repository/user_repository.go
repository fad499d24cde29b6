package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/landport/freight-api/internal/model"
)

// ErrUserNotFound is returned when a user lookup yields no rows.
var ErrUserNotFound = errors.New("user not found")

// UserRepo provides access to the users table, which backs both business
// systems: mini-program drivers and back-office administrators.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, open_id, nickname, username, password, avatar, phone, role, last_login_at, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.OpenID, &u.Nickname, &u.Username, &u.Password,
		&u.Avatar, &u.Phone, &u.Role, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID retrieves a user by primary key.  A missing row returns
// (nil, nil), which is the contract the auth middleware's account resolver
// relies on to distinguish "no such account" from a storage failure.
func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByUsername retrieves a back-office account by login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// DefaultNickname is assigned on first login when the mini-program sends no
// profile.
const DefaultNickname = "微信用户"

// FindOrCreateByOpenID returns the user bound to a WeChat openid, creating a
// fresh RoleUser row on first login, and reports whether it created one.
// The insert races benignly with itself: the unique key on open_id makes the
// loser retry the select.
func (r *UserRepo) FindOrCreateByOpenID(ctx context.Context, openID string) (*model.User, bool, error) {
	const sel = `SELECT ` + userColumns + ` FROM users WHERE open_id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, sel, openID))
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	const ins = `INSERT INTO users (open_id, nickname, role) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, ins, openID, DefaultNickname, model.RoleUser); err != nil {
		// lost the race: another login inserted first
		if u2, err2 := scanUser(r.db.QueryRowContext(ctx, sel, openID)); err2 == nil {
			return u2, false, nil
		}
		return nil, false, err
	}
	u, err = scanUser(r.db.QueryRowContext(ctx, sel, openID))
	return u, true, err
}

// UpdateProfile writes the nullable profile fields a driver may edit in the
// mini-program.  Nil pointers leave the stored value untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, nickname, avatar, phone *string) error {
	const q = `UPDATE users SET
	               nickname = COALESCE(?, nickname),
	               avatar   = COALESCE(?, avatar),
	               phone    = COALESCE(?, phone)
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, nickname, avatar, phone, id)
	return err
}

// UpsertAdmin creates or refreshes a back-office account: the stored
// password hash and role are overwritten so re-running the provisioning
// command resets lost credentials.  New rows get a synthetic open_id since
// admins never log in through WeChat.
func (r *UserRepo) UpsertAdmin(ctx context.Context, username, passwordHash string) (*model.User, error) {
	const upd = `UPDATE users SET password = ?, role = ? WHERE username = ?`
	res, err := r.db.ExecContext(ctx, upd, passwordHash, model.RoleAdmin, username)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 for a no-op rewrite too, so only insert when
		// the row is genuinely absent.
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ?`, username).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			openID := fmt.Sprintf("admin_%s_%d", username, time.Now().UnixMilli())
			const ins = `INSERT INTO users (open_id, nickname, username, password, role) VALUES (?, ?, ?, ?, ?)`
			if _, err := r.db.ExecContext(ctx, ins, openID, "管理员", username, passwordHash, model.RoleAdmin); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
	}
	return r.GetByUsername(ctx, username)
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	const q = `UPDATE users SET last_login_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
