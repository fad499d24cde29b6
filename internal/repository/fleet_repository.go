package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/landport/freight-api/internal/model"
)

// ErrFleetNotFound is returned when the caller belongs to no fleet.
var ErrFleetNotFound = errors.New("fleet not found")

// FleetRepo provides access to fleets and their rosters.  A driver belongs
// to at most one fleet in practice; the schema allows more but the API
// surfaces only the first.
type FleetRepo struct {
	db *sql.DB
}

// NewFleetRepo constructs a FleetRepo with the given DB handle.
func NewFleetRepo(db *sql.DB) *FleetRepo {
	return &FleetRepo{db: db}
}

// GetForUser returns the fleet the user belongs to and their role in it.
func (r *FleetRepo) GetForUser(ctx context.Context, userID uint64) (*model.Fleet, string, error) {
	const q = `SELECT f.id, f.name, f.description, f.created_at, f.updated_at, m.role
	           FROM fleets f
	           JOIN fleet_members m ON m.fleet_id = f.id
	           WHERE m.user_id = ?
	           ORDER BY m.joined_at LIMIT 1`
	var f model.Fleet
	var role string
	err := r.db.QueryRowContext(ctx, q, userID).
		Scan(&f.ID, &f.Name, &f.Description, &f.CreatedAt, &f.UpdatedAt, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrFleetNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &f, role, nil
}

// Roster lists a fleet's members with their display names, admins first.
func (r *FleetRepo) Roster(ctx context.Context, fleetID uint64) ([]model.FleetMember, error) {
	const q = `SELECT m.id, m.fleet_id, m.user_id, m.role, m.joined_at, u.nickname
	           FROM fleet_members m
	           JOIN users u ON u.id = m.user_id
	           WHERE m.fleet_id = ?
	           ORDER BY m.role = 'admin' DESC, m.joined_at`
	rows, err := r.db.QueryContext(ctx, q, fleetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.FleetMember
	for rows.Next() {
		var m model.FleetMember
		if err := rows.Scan(&m.ID, &m.FleetID, &m.UserID, &m.Role, &m.JoinedAt, &m.Nickname); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// IsMember reports whether the user belongs to the fleet.
func (r *FleetRepo) IsMember(ctx context.Context, fleetID, userID uint64) (bool, error) {
	const q = `SELECT 1 FROM fleet_members WHERE fleet_id = ? AND user_id = ?`
	var one int
	err := r.db.QueryRowContext(ctx, q, fleetID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
