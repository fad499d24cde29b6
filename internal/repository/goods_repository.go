package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/landport/freight-api/internal/model"
)

// ErrGoodsNotFound is returned when a goods lookup yields no rows for the
// caller.  An existing row owned by another user reports the same error so
// ids cannot be probed.
var ErrGoodsNotFound = errors.New("goods not found")

// GoodsFilter narrows a goods list query.  Zero values mean "no filter".
type GoodsFilter struct {
	Keyword  string // matches receiver name, sender name or remark
	Status   string
	Receiver string
	Sender   string
	Page     int
	PageSize int
}

// GoodsRepo provides access to the goods table.  Every query is scoped to
// the creating user: drivers only ever see their own waybills.
type GoodsRepo struct {
	db *sql.DB
}

// NewGoodsRepo constructs a GoodsRepo with the given DB handle.
func NewGoodsRepo(db *sql.DB) *GoodsRepo {
	return &GoodsRepo{db: db}
}

const goodsColumns = `g.id, g.name, g.waybill_no, g.receiver_name, g.receiver_phone,
	g.sender_name, g.sender_phone, g.volume, g.weight, g.freight, g.status,
	g.remark, g.images, g.created_by, g.created_at, g.updated_at`

func scanGoods(s interface{ Scan(...interface{}) error }) (*model.Goods, error) {
	var g model.Goods
	err := s.Scan(&g.ID, &g.Name, &g.WaybillNo, &g.ReceiverName, &g.ReceiverPhone,
		&g.SenderName, &g.SenderPhone, &g.Volume, &g.Weight, &g.Freight, &g.Status,
		&g.Remark, &g.Images, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// buildGoodsWhere assembles the WHERE clause shared by the list queries and
// their counts.  A nil ownerID skips the ownership scope (admin list-all).
func buildGoodsWhere(ownerID *uint64, f GoodsFilter) (string, []interface{}) {
	where := ` WHERE 1 = 1`
	var args []interface{}
	if ownerID != nil {
		where += ` AND g.created_by = ?`
		args = append(args, *ownerID)
	}
	if f.Keyword != "" {
		where += ` AND (g.receiver_name LIKE ? OR g.sender_name LIKE ? OR g.remark LIKE ?)`
		kw := "%" + f.Keyword + "%"
		args = append(args, kw, kw, kw)
	}
	if f.Status != "" {
		where += ` AND g.status = ?`
		args = append(args, f.Status)
	}
	if f.Receiver != "" {
		where += ` AND g.receiver_name LIKE ?`
		args = append(args, "%"+f.Receiver+"%")
	}
	if f.Sender != "" {
		where += ` AND g.sender_name LIKE ?`
		args = append(args, "%"+f.Sender+"%")
	}
	return where, args
}

// List returns one page of the owner's goods, newest first, with the
// creator profile joined in, plus the unpaged total for the pagination
// envelope.
func (r *GoodsRepo) List(ctx context.Context, ownerID uint64, f GoodsFilter) ([]model.Goods, int64, error) {
	return r.list(ctx, &ownerID, f)
}

// ListAll returns one page across every user's goods.  The handler gates
// this behind an admin role check.
func (r *GoodsRepo) ListAll(ctx context.Context, f GoodsFilter) ([]model.Goods, int64, error) {
	return r.list(ctx, nil, f)
}

func (r *GoodsRepo) list(ctx context.Context, ownerID *uint64, f GoodsFilter) ([]model.Goods, int64, error) {
	where, args := buildGoodsWhere(ownerID, f)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM goods g`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + goodsColumns + `, u.id, u.nickname, u.avatar
	      FROM goods g JOIN users u ON u.id = g.created_by` + where + `
	      ORDER BY g.created_at DESC, g.id DESC LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []model.Goods
	for rows.Next() {
		var g model.Goods
		var creator model.GoodsCreator
		if err := rows.Scan(&g.ID, &g.Name, &g.WaybillNo, &g.ReceiverName, &g.ReceiverPhone,
			&g.SenderName, &g.SenderPhone, &g.Volume, &g.Weight, &g.Freight, &g.Status,
			&g.Remark, &g.Images, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
			&creator.ID, &creator.Nickname, &creator.Avatar); err != nil {
			return nil, 0, err
		}
		g.Creator = &creator
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// GetByID retrieves one goods row owned by the caller.
func (r *GoodsRepo) GetByID(ctx context.Context, id, ownerID uint64) (*model.Goods, error) {
	const q = `SELECT ` + goodsColumns + ` FROM goods g WHERE g.id = ? AND g.created_by = ?`
	g, err := scanGoods(r.db.QueryRowContext(ctx, q, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoodsNotFound
	}
	return g, err
}

// Create inserts a goods row.  On success the ID is populated.
func (r *GoodsRepo) Create(ctx context.Context, g *model.Goods) error {
	const q = `INSERT INTO goods (name, waybill_no, receiver_name, receiver_phone,
	               sender_name, sender_phone, volume, weight, freight, status,
	               remark, images, created_by)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, g.Name, g.WaybillNo, g.ReceiverName, g.ReceiverPhone,
		g.SenderName, g.SenderPhone, g.Volume, g.Weight, g.Freight, g.Status,
		g.Remark, g.Images, g.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// Update rewrites every mutable column of a goods row the caller owns.  The
// handler loads the row first and applies partial changes, so a full write
// here is safe and keeps the query static.
func (r *GoodsRepo) Update(ctx context.Context, g *model.Goods, ownerID uint64) error {
	const q = `UPDATE goods SET name = ?, waybill_no = ?, receiver_name = ?,
	               receiver_phone = ?, sender_name = ?, sender_phone = ?,
	               volume = ?, weight = ?, freight = ?, status = ?, remark = ?, images = ?
	           WHERE id = ? AND created_by = ?`
	_, err := r.db.ExecContext(ctx, q, g.Name, g.WaybillNo, g.ReceiverName, g.ReceiverPhone,
		g.SenderName, g.SenderPhone, g.Volume, g.Weight, g.Freight, g.Status,
		g.Remark, g.Images, g.ID, ownerID)
	return err
}

// UpdateStatus moves a goods row to a new transport status.
func (r *GoodsRepo) UpdateStatus(ctx context.Context, id, ownerID uint64, status string) error {
	const q = `UPDATE goods SET status = ? WHERE id = ? AND created_by = ?`
	res, err := r.db.ExecContext(ctx, q, status, id, ownerID)
	if err != nil {
		return err
	}
	// RowsAffected is 0 both for a missing row and for a no-op write, so
	// re-check existence before reporting not found.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM goods WHERE id = ? AND created_by = ?`, id, ownerID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGoodsNotFound
		}
		return err
	}
	return nil
}

// Delete removes a goods row the caller owns.
func (r *GoodsRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goods WHERE id = ? AND created_by = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGoodsNotFound
	}
	return nil
}

// StatusCounts returns the owner's goods count per transport status for the
// mini-program home screen.
func (r *GoodsRepo) StatusCounts(ctx context.Context, ownerID uint64) (map[string]int64, error) {
	const q = `SELECT status, COUNT(*) FROM goods WHERE created_by = ? GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64, len(model.GoodsStatuses))
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// MonthlyFreight is one month of the owner's reconciliation summary.
type MonthlyFreight struct {
	Month        string  // YYYY-MM
	GoodsCount   int64
	TotalFreight float64
}

// MonthlyFreightTotals aggregates the owner's freight per month, newest
// month first.  Cancelled waybills are excluded: they were never hauled.
func (r *GoodsRepo) MonthlyFreightTotals(ctx context.Context, ownerID uint64) ([]MonthlyFreight, error) {
	const q = `SELECT DATE_FORMAT(created_at, '%Y-%m') AS month, COUNT(*), COALESCE(SUM(freight), 0)
	           FROM goods WHERE created_by = ? AND status != ?
	           GROUP BY month ORDER BY month DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID, model.GoodsStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MonthlyFreight
	for rows.Next() {
		var m MonthlyFreight
		if err := rows.Scan(&m.Month, &m.GoodsCount, &m.TotalFreight); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
