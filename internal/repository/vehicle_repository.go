package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/landport/freight-api/internal/model"
)

// ErrVehicleNotFound is returned when a vehicle lookup yields no rows for
// the caller.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleProfit aggregates a vehicle's money movement over a date window.
type VehicleProfit struct {
	Income  float64
	Expense float64
}

// Profit is income minus expense.
func (p VehicleProfit) Profit() float64 { return p.Income - p.Expense }

// VehicleRepo provides access to the vehicles table.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo constructs a VehicleRepo with the given DB handle.
func NewVehicleRepo(db *sql.DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

const vehicleColumns = `id, user_id, plate_number, brand, horsepower, load_capacity,
	axle_count, tire_count, trailer_length, certificate_images, other_images,
	created_at, updated_at`

func scanVehicle(s interface{ Scan(...interface{}) error }) (*model.Vehicle, error) {
	var v model.Vehicle
	err := s.Scan(&v.ID, &v.UserID, &v.PlateNumber, &v.Brand, &v.Horsepower, &v.LoadCapacity,
		&v.AxleCount, &v.TireCount, &v.TrailerLength, &v.CertificateImages, &v.OtherImages,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByOwner returns every vehicle of one driver, oldest first.
func (r *VehicleRepo) ListByOwner(ctx context.Context, userID uint64) ([]model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE user_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

// GetByID retrieves a vehicle the caller owns.
func (r *VehicleRepo) GetByID(ctx context.Context, id, userID uint64) (*model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ? AND user_id = ?`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, q, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// GetAny retrieves a vehicle without an ownership check.  Used only by the
// certificate share view, where the bearer of a valid share token stands in
// for the owner.
func (r *VehicleRepo) GetAny(ctx context.Context, id uint64) (*model.Vehicle, error) {
	const q = `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// Create inserts a vehicle.  On success the ID is populated.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	const q = `INSERT INTO vehicles (user_id, plate_number, brand, horsepower, load_capacity,
	               axle_count, tire_count, trailer_length, certificate_images, other_images)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, v.UserID, v.PlateNumber, v.Brand, v.Horsepower,
		v.LoadCapacity, v.AxleCount, v.TireCount, v.TrailerLength, v.CertificateImages, v.OtherImages)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// Update rewrites every mutable column of a vehicle the caller owns.
func (r *VehicleRepo) Update(ctx context.Context, v *model.Vehicle, userID uint64) error {
	const q = `UPDATE vehicles SET plate_number = ?, brand = ?, horsepower = ?,
	               load_capacity = ?, axle_count = ?, tire_count = ?, trailer_length = ?,
	               certificate_images = ?, other_images = ?
	           WHERE id = ? AND user_id = ?`
	_, err := r.db.ExecContext(ctx, q, v.PlateNumber, v.Brand, v.Horsepower,
		v.LoadCapacity, v.AxleCount, v.TireCount, v.TrailerLength,
		v.CertificateImages, v.OtherImages, v.ID, userID)
	return err
}

// Delete removes a vehicle with no transport records.  A vehicle that still
// has records reports ErrConflict: deleting it would orphan the books.
func (r *VehicleRepo) Delete(ctx context.Context, id, userID uint64) error {
	var n int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transport_records WHERE vehicle_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// ProfitByVehicle sums each vehicle's income and expense over [from, to],
// keyed by vehicle id.  Vehicles with no records in the window are absent
// from the map; callers treat absence as zero.
func (r *VehicleRepo) ProfitByVehicle(ctx context.Context, userID uint64, from, to time.Time) (map[uint64]VehicleProfit, error) {
	const q = `SELECT t.vehicle_id,
	               SUM(t.freight + t.other_income),
	               SUM(t.fuel_cost + t.repair_cost + t.accommodation_cost + t.meal_cost + t.other_expense)
	           FROM transport_records t
	           JOIN vehicles v ON v.id = t.vehicle_id
	           WHERE v.user_id = ? AND t.date >= ? AND t.date <= ?
	           GROUP BY t.vehicle_id`
	rows, err := r.db.QueryContext(ctx, q, userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uint64]VehicleProfit)
	for rows.Next() {
		var id uint64
		var p VehicleProfit
		if err := rows.Scan(&id, &p.Income, &p.Expense); err != nil {
			return nil, err
		}
		result[id] = p
	}
	return result, rows.Err()
}
