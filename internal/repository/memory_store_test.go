package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/vaccination-booking/internal/model"
)

func seedCompanies(t *testing.T, s *MemoryStore, n int) []model.Company {
	t.Helper()
	base := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Company, 0, n)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		c := model.Company{
			Name: fmt.Sprintf("Center %02d", i), Address: "a", District: "d",
			Province: []string{"Bangkok", "Chiang Mai"}[i%2], PostalCode: fmt.Sprintf("%05d", 10000+i),
			Website: "w", Description: "desc", Region: "central",
		}
		require.NoError(t, s.Companies().Create(context.Background(), &c))
		out = append(out, c)
	}
	return out
}

func TestMemoryStore_CompanyListFilterSortPage(t *testing.T) {
	s := NewMemoryStore()
	seedCompanies(t, s, 10)
	ctx := context.Background()

	q, err := CompanySchema.Parse(url.Values{"province": {"Bangkok"}, "postalcode[gte]": {"10002"}, "limit": {"2"}, "page": {"2"}})
	require.NoError(t, err)

	got, err := s.Companies().List(ctx, q)
	require.NoError(t, err)
	n, err := s.Companies().Count(ctx, q.Filter)
	require.NoError(t, err)

	// Bangkok entries with postal code >= 10002 are 2,4,6,8; newest first.
	assert.Equal(t, int64(4), n)
	require.Len(t, got, 2)
	assert.Equal(t, "Center 04", got[0].Name)
	assert.Equal(t, "Center 02", got[1].Name)
}

func TestMemoryStore_CompanyListInAndPastLastPage(t *testing.T) {
	s := NewMemoryStore()
	seedCompanies(t, s, 4)
	q, err := CompanySchema.Parse(url.Values{"name[in]": {"Center 00,Center 03"}, "sort": {"name"}})
	require.NoError(t, err)

	got, err := s.Companies().List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Center 00", got[0].Name)

	q.Page = 5
	got, err = s.Companies().List(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_CompanyListHugeLimit(t *testing.T) {
	s := NewMemoryStore()
	seedCompanies(t, s, 3)

	q, err := CompanySchema.Parse(url.Values{"limit": {"9223372036854775807"}})
	require.NoError(t, err)
	got, err := s.Companies().List(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// A Query built by hand can still carry an overflowing window.
	q.Page, q.Limit = 2, math.MaxInt
	got, err = s.Companies().List(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_UniqueNames(t *testing.T) {
	s := NewMemoryStore()
	cs := seedCompanies(t, s, 2)

	dup := model.Company{Name: "center 00"}
	assert.ErrorIs(t, s.Companies().Create(context.Background(), &dup), ErrConflict)

	cs[1].Name = "Center 00"
	assert.ErrorIs(t, s.Companies().Update(context.Background(), &cs[1]), ErrConflict)
}

func TestMemoryStore_ForeignKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cs := seedCompanies(t, s, 1)

	assert.ErrorIs(t, s.Bookings().Create(ctx, &model.Booking{UserID: 1, CompanyID: 99}), ErrForeignKey)

	require.NoError(t, s.Bookings().Create(ctx, &model.Booking{UserID: 1, CompanyID: cs[0].ID}))
	assert.ErrorIs(t, s.Companies().Delete(ctx, cs[0].ID), ErrForeignKey)
}

func TestMemoryStore_WithinTxRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cs := seedCompanies(t, s, 1)
	require.NoError(t, s.Bookings().Create(ctx, &model.Booking{UserID: 1, CompanyID: cs[0].ID}))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		n, err := tx.Bookings().DeleteByCompany(ctx, cs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.Bookings().CountByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_WithinTxCommits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cs := seedCompanies(t, s, 1)
	require.NoError(t, s.Bookings().Create(ctx, &model.Booking{UserID: 1, CompanyID: cs[0].ID}))

	err := s.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.Bookings().DeleteByCompany(ctx, cs[0].ID); err != nil {
			return err
		}
		return tx.Companies().Delete(ctx, cs[0].ID)
	})
	require.NoError(t, err)

	_, err = s.Companies().GetByID(ctx, cs[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_BookingViews(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cs := seedCompanies(t, s, 2)
	day := time.Date(2022, 5, 11, 0, 0, 0, 0, time.UTC)
	for _, b := range []model.Booking{
		{UserID: 1, CompanyID: cs[0].ID, BookDate: day},
		{UserID: 2, CompanyID: cs[1].ID, BookDate: day},
		{UserID: 1, CompanyID: cs[1].ID, BookDate: day},
	} {
		require.NoError(t, s.Bookings().Create(ctx, &b))
	}

	mine, err := s.Bookings().List(ctx, model.BookingFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, cs[0].Name, mine[0].Company.Name)
	assert.Equal(t, "Bangkok", mine[0].Company.Province)

	atSecond, err := s.Bookings().List(ctx, model.BookingFilter{CompanyID: cs[1].ID})
	require.NoError(t, err)
	assert.Len(t, atSecond, 2)

	v, err := s.Bookings().GetView(ctx, mine[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "desc", v.Company.Description)
}

func TestMemoryStore_RefreshTokens(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Tokens().StoreRefresh(ctx, 7, "h1", now.Add(time.Hour)))
	require.NoError(t, s.Tokens().StoreRefresh(ctx, 7, "h2", now.Add(-time.Hour)))

	require.NoError(t, s.Tokens().StoreRefresh(ctx, 7, "h3", now.Add(time.Hour)))

	uid, err := s.Tokens().ConsumeRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
	_, err = s.Tokens().ConsumeRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrNotFound, "a token is consumed once")

	_, err = s.Tokens().ConsumeRefresh(ctx, "h2")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Tokens().RevokeAllForUser(ctx, 7))
	_, err = s.Tokens().ConsumeRefresh(ctx, "h3")
	assert.ErrorIs(t, err, ErrNotFound)
}
