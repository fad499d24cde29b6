package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/landport/freight-api/internal/model"
)

// ErrCaseNotFound is returned when a case lookup yields no rows.
var ErrCaseNotFound = errors.New("case not found")

// CaseFilter narrows a case list query.
type CaseFilter struct {
	Keyword  string // matches the project name
	Tag      string // matches one element of the tags array
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// CaseRepo provides access to the cases table shown on the agency website.
// Cases are a shared catalogue, not per-user data, so no queries here carry
// an ownership scope; write access is gated upstream by the admin enforcer.
type CaseRepo struct {
	db *sql.DB
}

// NewCaseRepo constructs a CaseRepo with the given DB handle.
func NewCaseRepo(db *sql.DB) *CaseRepo {
	return &CaseRepo{db: db}
}

const caseColumns = `id, project_name, date, tags, images, created_at, updated_at`

func scanCase(s interface{ Scan(...interface{}) error }) (*model.Case, error) {
	var cs model.Case
	err := s.Scan(&cs.ID, &cs.ProjectName, &cs.Date, &cs.Tags, &cs.Images, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// List returns one page of cases, newest project date first, plus the
// unpaged total.
func (r *CaseRepo) List(ctx context.Context, f CaseFilter) ([]model.Case, int64, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if f.Keyword != "" {
		where += ` AND project_name LIKE ?`
		args = append(args, "%"+f.Keyword+"%")
	}
	if f.Tag != "" {
		// tags is a JSON array of strings
		where += ` AND JSON_CONTAINS(tags, JSON_QUOTE(?))`
		args = append(args, f.Tag)
	}
	if f.From != nil {
		where += ` AND date >= ?`
		args = append(args, f.From.Format("2006-01-02"))
	}
	if f.To != nil {
		where += ` AND date <= ?`
		args = append(args, f.To.Format("2006-01-02"))
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + caseColumns + ` FROM cases` + where + ` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []model.Case
	for rows.Next() {
		cs, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *cs)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// GetByID retrieves one case.
func (r *CaseRepo) GetByID(ctx context.Context, id uint64) (*model.Case, error) {
	const q = `SELECT ` + caseColumns + ` FROM cases WHERE id = ?`
	cs, err := scanCase(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	return cs, err
}

// Create inserts a case.  On success the ID is populated.
func (r *CaseRepo) Create(ctx context.Context, cs *model.Case) error {
	const q = `INSERT INTO cases (project_name, date, tags, images) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, cs.ProjectName, cs.Date.Format("2006-01-02"), cs.Tags, cs.Images)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cs.ID = uint64(id)
	return nil
}

// Update rewrites every mutable column of a case.
func (r *CaseRepo) Update(ctx context.Context, cs *model.Case) error {
	const q = `UPDATE cases SET project_name = ?, date = ?, tags = ?, images = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, cs.ProjectName, cs.Date.Format("2006-01-02"), cs.Tags, cs.Images, cs.ID)
	return err
}

// Delete removes a case.
func (r *CaseRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCaseNotFound
	}
	return nil
}
