package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/iliyamo/vaccination-booking/internal/model"
)

// BookingRepo runs booking queries against MySQL.
type BookingRepo struct {
	q querier
}

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
	return row.Scan(&b.ID, &b.UserID, &b.CompanyID, &b.BookDate, &b.CreatedAt)
}

// List returns bookings matching f, each joined with its company's name,
// province and tel.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.BookingView, error) {
	ds := dialect.From(goqu.T("bookings").As("b")).Prepared(true).
		Join(goqu.T("companies").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("b.company_id")))).
		Select("b.id", "b.user_id", "b.book_date", "b.created_at", "c.id", "c.name", "c.province", "c.tel").
		Order(goqu.I("b.id").Asc())
	if f.UserID != 0 {
		ds = ds.Where(goqu.I("b.user_id").Eq(f.UserID))
	}
	if f.CompanyID != 0 {
		ds = ds.Where(goqu.I("b.company_id").Eq(f.CompanyID))
	}
	sqlStr, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingView{}
	for rows.Next() {
		v := model.BookingView{Company: &model.CompanySummary{}}
		if err := rows.Scan(&v.ID, &v.UserID, &v.BookDate, &v.CreatedAt,
			&v.Company.ID, &v.Company.Name, &v.Company.Province, &v.Company.Tel); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCompanies returns the bookings of the given companies ordered by id.
func (r *BookingRepo) ListByCompanies(ctx context.Context, companyIDs []uint64) ([]model.Booking, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	ids := make([]any, 0, len(companyIDs))
	for _, id := range companyIDs {
		ids = append(ids, id)
	}
	sqlStr, args, err := dialect.From("bookings").Prepared(true).
		Select("id", "user_id", "company_id", "book_date", "created_at").
		Where(goqu.C("company_id").In(ids...)).
		Order(goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a booking or returns ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, company_id, book_date, created_at FROM bookings WHERE id = ?`
	var b model.Booking
	if err := scanBooking(r.q.QueryRowContext(ctx, q, id), &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetView fetches a booking with the company name, description and tel.
func (r *BookingRepo) GetView(ctx context.Context, id uint64) (*model.BookingView, error) {
	const q = `SELECT b.id, b.user_id, b.book_date, b.created_at, c.id, c.name, c.description, c.tel
	           FROM bookings b
	           JOIN companies c ON c.id = b.company_id
	           WHERE b.id = ?`
	v := model.BookingView{Company: &model.CompanySummary{}}
	err := r.q.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.UserID, &v.BookDate, &v.CreatedAt,
		&v.Company.ID, &v.Company.Name, &v.Company.Description, &v.Company.Tel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// CountByUser returns how many bookings the user currently holds.
func (r *BookingRepo) CountByUser(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// Create inserts b and fills its ID and CreatedAt.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO bookings (user_id, company_id, book_date) VALUES (?, ?, ?)`,
		b.UserID, b.CompanyID, b.BookDate.UTC())
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.q.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt)
}

// Update overwrites the company and date of b. The owner is immutable.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE bookings SET company_id = ?, book_date = ? WHERE id = ?`,
		b.CompanyID, b.BookDate.UTC(), b.ID)
	return translate(err)
}

// Delete removes a booking or returns ErrNotFound.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCompany removes every booking of a company and returns how many
// were removed.
func (r *BookingRepo) DeleteByCompany(ctx context.Context, companyID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE company_id = ?`, companyID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
