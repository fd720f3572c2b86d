package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/query"
)

var companyColumns = []any{
	"id", "name", "address", "district", "province", "postal_code",
	"website", "description", "tel", "region", "created_at",
}

// CompanyRepo runs company queries against MySQL.
type CompanyRepo struct {
	q querier
}

func scanCompany(row interface{ Scan(...any) error }, c *model.Company) error {
	return row.Scan(&c.ID, &c.Name, &c.Address, &c.District, &c.Province, &c.PostalCode,
		&c.Website, &c.Description, &c.Tel, &c.Region, &c.CreatedAt)
}

// whereClause compiles a translated filter into goqu expressions. Column
// names come from the schema, never from the request.
func whereClause(f query.Filter) []exp.Expression {
	out := make([]exp.Expression, 0, len(f))
	for _, c := range f {
		col := goqu.C(c.Field.Column)
		args := c.Args()
		switch c.Op {
		case query.OpGt:
			out = append(out, col.Gt(args[0]))
		case query.OpGte:
			out = append(out, col.Gte(args[0]))
		case query.OpLt:
			out = append(out, col.Lt(args[0]))
		case query.OpLte:
			out = append(out, col.Lte(args[0]))
		case query.OpIn:
			out = append(out, col.In(args...))
		default:
			out = append(out, col.Eq(args[0]))
		}
	}
	return out
}

func orderClause(keys []query.SortKey) []exp.OrderedExpression {
	out := make([]exp.OrderedExpression, 0, len(keys)+1)
	byID := false
	for _, k := range keys {
		col := goqu.C(k.Field.Column)
		if k.Field.Column == "id" {
			byID = true
		}
		if k.Desc {
			out = append(out, col.Desc())
		} else {
			out = append(out, col.Asc())
		}
	}
	// Tie-break on id so pages never overlap.
	if !byID {
		out = append(out, goqu.C("id").Asc())
	}
	return out
}

// List returns one page of companies matching q.
func (r *CompanyRepo) List(ctx context.Context, q query.Query) ([]model.Company, error) {
	sqlStr, args, err := dialect.From("companies").Prepared(true).
		Select(companyColumns...).
		Where(whereClause(q.Filter)...).
		Order(orderClause(q.Sort)...).
		Limit(uint(q.Limit)).
		Offset(uint(q.Offset())).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Company{}
	for rows.Next() {
		var c model.Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of companies matching f.
func (r *CompanyRepo) Count(ctx context.Context, f query.Filter) (int64, error) {
	sqlStr, args, err := dialect.From("companies").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(whereClause(f)...).
		ToSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.q.QueryRowContext(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetByID fetches a company or returns ErrNotFound.
func (r *CompanyRepo) GetByID(ctx context.Context, id uint64) (*model.Company, error) {
	const q = `SELECT id, name, address, district, province, postal_code, website, description, tel, region, created_at
	           FROM companies WHERE id = ?`
	var c model.Company
	if err := scanCompany(r.q.QueryRowContext(ctx, q, id), &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts c and fills its ID and CreatedAt. A duplicate name yields
// ErrConflict.
func (r *CompanyRepo) Create(ctx context.Context, c *model.Company) error {
	const qInsert = `INSERT INTO companies
	                 (name, address, district, province, postal_code, website, description, tel, region)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, qInsert, c.Name, c.Address, c.District, c.Province,
		c.PostalCode, c.Website, c.Description, c.Tel, c.Region)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM companies WHERE id = ?`, c.ID).Scan(&c.CreatedAt)
}

// Update overwrites the mutable columns of c.
func (r *CompanyRepo) Update(ctx context.Context, c *model.Company) error {
	const q = `UPDATE companies
	           SET name = ?, address = ?, district = ?, province = ?, postal_code = ?,
	               website = ?, description = ?, tel = ?, region = ?
	           WHERE id = ?`
	_, err := r.q.ExecContext(ctx, q, c.Name, c.Address, c.District, c.Province,
		c.PostalCode, c.Website, c.Description, c.Tel, c.Region, c.ID)
	return translate(err)
}

// Delete removes a company row. Bookings must already be gone; the foreign
// key rejects the delete otherwise.
func (r *CompanyRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
