package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/landport/freight-api/internal/model"
)

// ErrRecordNotFound is returned when a transport record lookup yields no
// rows for the caller.
var ErrRecordNotFound = errors.New("transport record not found")

// RecordFilter narrows a transport record list query.  Nil pointers mean
// "no filter"; the date bounds are inclusive.
type RecordFilter struct {
	VehicleID    *uint64
	From         *time.Time
	To           *time.Time
	IsReconciled *bool
	Page         int
	PageSize     int
}

// StatsTotals is the income/expense overview over a date window.
type StatsTotals struct {
	Income      float64
	Expense     float64
	RecordCount int64
}

// ExpenseBreakdown splits total expense into the categories drivers track.
type ExpenseBreakdown struct {
	Fuel          float64
	Repair        float64
	Accommodation float64
	Meal          float64
	Other         float64
}

// DailyPoint is one day of the reconciliation trend.
type DailyPoint struct {
	Date    string // YYYY-MM-DD
	Income  float64
	Expense float64
}

// TransportRecordRepo provides access to the transport_records table.  All
// queries join vehicles to scope rows to the calling driver: a record is
// reachable only through a vehicle the caller owns.
type TransportRecordRepo struct {
	db *sql.DB
}

// NewTransportRecordRepo constructs a TransportRecordRepo.
func NewTransportRecordRepo(db *sql.DB) *TransportRecordRepo {
	return &TransportRecordRepo{db: db}
}

const recordColumns = `t.id, t.vehicle_id, t.fleet_id, t.goods_name, t.date,
	t.freight, t.other_income, t.fuel_cost, t.repair_cost, t.accommodation_cost,
	t.meal_cost, t.other_expense, t.remark, t.images, t.is_reconciled,
	t.created_at, t.updated_at`

func scanRecord(s interface{ Scan(...interface{}) error }, withBrand bool) (*model.TransportRecord, error) {
	var t model.TransportRecord
	dest := []interface{}{&t.ID, &t.VehicleID, &t.FleetID, &t.GoodsName, &t.Date,
		&t.Freight, &t.OtherIncome, &t.FuelCost, &t.RepairCost, &t.AccommodationCost,
		&t.MealCost, &t.OtherExpense, &t.Remark, &t.Images, &t.IsReconciled,
		&t.CreatedAt, &t.UpdatedAt}
	if withBrand {
		dest = append(dest, &t.VehicleBrand)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

func buildRecordWhere(userID uint64, f RecordFilter) (string, []interface{}) {
	where := ` WHERE v.user_id = ?`
	args := []interface{}{userID}
	if f.VehicleID != nil {
		where += ` AND t.vehicle_id = ?`
		args = append(args, *f.VehicleID)
	}
	if f.From != nil {
		where += ` AND t.date >= ?`
		args = append(args, f.From.Format("2006-01-02"))
	}
	if f.To != nil {
		where += ` AND t.date <= ?`
		args = append(args, f.To.Format("2006-01-02"))
	}
	if f.IsReconciled != nil {
		where += ` AND t.is_reconciled = ?`
		args = append(args, *f.IsReconciled)
	}
	return where, args
}

// List returns one page of the driver's records, newest date first, with the
// vehicle brand joined in for display, plus the unpaged total.
func (r *TransportRecordRepo) List(ctx context.Context, userID uint64, f RecordFilter) ([]model.TransportRecord, int64, error) {
	where, args := buildRecordWhere(userID, f)
	const join = ` FROM transport_records t JOIN vehicles v ON v.id = t.vehicle_id`

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+join+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + recordColumns + `, v.brand` + join + where + `
	      ORDER BY t.date DESC, t.id DESC LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []model.TransportRecord
	for rows.Next() {
		t, err := scanRecord(rows, true)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// GetByID retrieves one record reachable by the caller.
func (r *TransportRecordRepo) GetByID(ctx context.Context, id, userID uint64) (*model.TransportRecord, error) {
	q := `SELECT ` + recordColumns + `, v.brand
	      FROM transport_records t JOIN vehicles v ON v.id = t.vehicle_id
	      WHERE t.id = ? AND v.user_id = ?`
	t, err := scanRecord(r.db.QueryRowContext(ctx, q, id, userID), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return t, err
}

// Create inserts a record.  The handler has already verified the vehicle
// belongs to the caller.  On success the ID is populated.
func (r *TransportRecordRepo) Create(ctx context.Context, t *model.TransportRecord) error {
	const q = `INSERT INTO transport_records (vehicle_id, fleet_id, goods_name, date,
	               freight, other_income, fuel_cost, repair_cost, accommodation_cost,
	               meal_cost, other_expense, remark, images, is_reconciled)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.VehicleID, t.FleetID, t.GoodsName, t.Date.Format("2006-01-02"),
		t.Freight, t.OtherIncome, t.FuelCost, t.RepairCost, t.AccommodationCost,
		t.MealCost, t.OtherExpense, t.Remark, t.Images, t.IsReconciled)
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

// Update rewrites every mutable column of a record the caller can reach.
func (r *TransportRecordRepo) Update(ctx context.Context, t *model.TransportRecord, userID uint64) error {
	const q = `UPDATE transport_records t
	           JOIN vehicles v ON v.id = t.vehicle_id
	           SET t.vehicle_id = ?, t.goods_name = ?, t.date = ?,
	               t.freight = ?, t.other_income = ?, t.fuel_cost = ?, t.repair_cost = ?,
	               t.accommodation_cost = ?, t.meal_cost = ?, t.other_expense = ?,
	               t.remark = ?, t.images = ?
	           WHERE t.id = ? AND v.user_id = ?`
	_, err := r.db.ExecContext(ctx, q, t.VehicleID, t.GoodsName, t.Date.Format("2006-01-02"),
		t.Freight, t.OtherIncome, t.FuelCost, t.RepairCost,
		t.AccommodationCost, t.MealCost, t.OtherExpense,
		t.Remark, t.Images, t.ID, userID)
	return err
}

// Delete removes a record the caller can reach.
func (r *TransportRecordRepo) Delete(ctx context.Context, id, userID uint64) error {
	const q = `DELETE t FROM transport_records t
	           JOIN vehicles v ON v.id = t.vehicle_id
	           WHERE t.id = ? AND v.user_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetReconciled flips the reconciliation flag on a batch of the caller's
// records and reports how many rows actually changed.
func (r *TransportRecordRepo) SetReconciled(ctx context.Context, userID uint64, ids []uint64, reconciled bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := `UPDATE transport_records t
	      JOIN vehicles v ON v.id = t.vehicle_id
	      SET t.is_reconciled = ?
	      WHERE v.user_id = ? AND t.id IN (`
	args := []interface{}{reconciled, userID}
	for i, id := range ids {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, id)
	}
	q += ")"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Totals sums the driver's income, expense and record count over the
// inclusive window.
func (r *TransportRecordRepo) Totals(ctx context.Context, userID uint64, from, to time.Time) (StatsTotals, error) {
	const q = `SELECT COUNT(*),
	               COALESCE(SUM(t.freight + t.other_income), 0),
	               COALESCE(SUM(t.fuel_cost + t.repair_cost + t.accommodation_cost + t.meal_cost + t.other_expense), 0)
	           FROM transport_records t
	           JOIN vehicles v ON v.id = t.vehicle_id
	           WHERE v.user_id = ? AND t.date >= ? AND t.date <= ?`
	var s StatsTotals
	err := r.db.QueryRowContext(ctx, q, userID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Scan(&s.RecordCount, &s.Income, &s.Expense)
	return s, err
}

// Breakdown splits the driver's expenses over the window into categories.
func (r *TransportRecordRepo) Breakdown(ctx context.Context, userID uint64, from, to time.Time) (ExpenseBreakdown, error) {
	const q = `SELECT COALESCE(SUM(t.fuel_cost), 0), COALESCE(SUM(t.repair_cost), 0),
	               COALESCE(SUM(t.accommodation_cost), 0), COALESCE(SUM(t.meal_cost), 0),
	               COALESCE(SUM(t.other_expense), 0)
	           FROM transport_records t
	           JOIN vehicles v ON v.id = t.vehicle_id
	           WHERE v.user_id = ? AND t.date >= ? AND t.date <= ?`
	var b ExpenseBreakdown
	err := r.db.QueryRowContext(ctx, q, userID, from.Format("2006-01-02"), to.Format("2006-01-02")).
		Scan(&b.Fuel, &b.Repair, &b.Accommodation, &b.Meal, &b.Other)
	return b, err
}

// DailyTrend returns per-day income and expense over the window, ascending
// by date.  Days without records are absent; the frontend fills gaps.
func (r *TransportRecordRepo) DailyTrend(ctx context.Context, userID uint64, from, to time.Time) ([]DailyPoint, error) {
	const q = `SELECT DATE_FORMAT(t.date, '%Y-%m-%d'),
	               SUM(t.freight + t.other_income),
	               SUM(t.fuel_cost + t.repair_cost + t.accommodation_cost + t.meal_cost + t.other_expense)
	           FROM transport_records t
	           JOIN vehicles v ON v.id = t.vehicle_id
	           WHERE v.user_id = ? AND t.date >= ? AND t.date <= ?
	           GROUP BY t.date ORDER BY t.date`
	rows, err := r.db.QueryContext(ctx, q, userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Date, &p.Income, &p.Expense); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
