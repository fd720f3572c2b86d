package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/config"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/queue"
	"github.com/iliyamo/vaccination-booking/internal/repository"
)

func TestBookingCreate_FirstBookingSucceeds(t *testing.T) {
	store := repository.NewMemoryStore()
	events := &recorder{}
	svc := newBookingService(store, events)
	c := newCompany(t, store, "Siriraj")

	b, err := svc.Create(context.Background(), alice, c.ID, model.BookingInput{BookDate: at(inWindow)})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, b.UserID)
	assert.Equal(t, c.ID, b.CompanyID)
	assert.True(t, inWindow.Equal(b.BookDate))
	assert.NotZero(t, b.ID)
	assert.Equal(t, []string{queue.BookingCreated}, events.types())
}

func TestBookingCreate_OutsideWindow(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")

	dates := []time.Time{
		config.DefaultWindowStart.Add(-time.Millisecond),
		config.DefaultWindowEnd,
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 5, 9, 23, 59, 59, 0, time.UTC),
	}
	for _, d := range dates {
		_, err := svc.Create(context.Background(), alice, c.ID, model.BookingInput{BookDate: at(d)})
		assert.True(t, apperr.Is(err, apperr.KindValidation), "date %s: %v", d, err)
	}
	n, err := store.Bookings().CountByUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBookingCreate_WindowBoundaries(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")

	_, err := svc.Create(context.Background(), admin, c.ID, model.BookingInput{BookDate: at(config.DefaultWindowStart)})
	assert.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, c.ID, model.BookingInput{BookDate: at(config.DefaultWindowEnd.Add(-time.Millisecond))})
	assert.NoError(t, err)
}

func TestBookingCreate_MissingDate(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")

	_, err := svc.Create(context.Background(), alice, c.ID, model.BookingInput{})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	var ae *apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "bookDate")
}

func TestBookingCreate_UnknownCompany(t *testing.T) {
	svc := newBookingService(repository.NewMemoryStore(), nil)

	_, err := svc.Create(context.Background(), alice, 404, model.BookingInput{BookDate: at(inWindow)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBookingCreate_UnknownCompanyBeatsBadDate(t *testing.T) {
	svc := newBookingService(repository.NewMemoryStore(), nil)

	_, err := svc.Create(context.Background(), alice, 404, model.BookingInput{BookDate: at(time.Now())})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBookingCreate_Quota(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")

	for i := 0; i < 3; i++ {
		book(t, svc, alice, c.ID)
	}
	_, err := svc.Create(context.Background(), alice, c.ID, model.BookingInput{BookDate: at(inWindow)})
	assert.True(t, apperr.Is(err, apperr.KindQuotaExceeded))

	// Other users are unaffected.
	book(t, svc, bob, c.ID)

	n, err := store.Bookings().CountByUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestBookingCreate_QuotaFreesUpAfterDelete(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")

	first := book(t, svc, alice, c.ID)
	book(t, svc, alice, c.ID)
	book(t, svc, alice, c.ID)
	require.NoError(t, svc.Delete(context.Background(), alice, first.ID))

	book(t, svc, alice, c.ID)
}

func TestBookingCreate_AdminHasNoQuota(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")

	for i := 0; i < 5; i++ {
		book(t, svc, admin, c.ID)
	}
}

func TestBookingCreate_ConfiguredRules(t *testing.T) {
	store := repository.NewMemoryStore()
	cfg := config.BookingConfig{
		WindowStart:      time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:        time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		MaxActivePerUser: 1,
	}
	svc := NewBookingService(store, cfg, nil, zap.NewNop())
	c := newCompany(t, store, "Siriraj")

	_, err := svc.Create(context.Background(), alice, c.ID, model.BookingInput{BookDate: at(inWindow)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	day := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), alice, c.ID, model.BookingInput{BookDate: at(day)})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), alice, c.ID, model.BookingInput{BookDate: at(day)})
	assert.True(t, apperr.Is(err, apperr.KindQuotaExceeded))
}

func TestBookingCreate_PublishFailureIsIgnored(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, &recorder{err: errors.New("broker down")})
	c := newCompany(t, store, "Siriraj")

	book(t, svc, alice, c.ID)
}

func TestBookingUpdate(t *testing.T) {
	store := repository.NewMemoryStore()
	events := &recorder{}
	svc := newBookingService(store, events)
	c1 := newCompany(t, store, "Siriraj")
	c2 := newCompany(t, store, "Ramathibodi")
	b := book(t, svc, alice, c1.ID)
	ctx := context.Background()

	t.Run("stranger is forbidden and nothing changes", func(t *testing.T) {
		_, err := svc.Update(ctx, bob, b.ID, model.BookingInput{BookDate: at(inWindow.Add(time.Hour))})
		assert.True(t, apperr.Is(err, apperr.KindForbidden))

		got, err := store.Bookings().GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, inWindow.Equal(got.BookDate))
	})

	t.Run("owner moves the date", func(t *testing.T) {
		next := inWindow.Add(24 * time.Hour)
		got, err := svc.Update(ctx, alice, b.ID, model.BookingInput{BookDate: at(next)})
		require.NoError(t, err)
		assert.True(t, next.Equal(got.BookDate))
		assert.Equal(t, c1.ID, got.CompanyID)
	})

	t.Run("admin moves the company", func(t *testing.T) {
		got, err := svc.Update(ctx, admin, b.ID, model.BookingInput{Company: ptr(c2.ID)})
		require.NoError(t, err)
		assert.Equal(t, c2.ID, got.CompanyID)
		assert.Equal(t, alice.ID, got.UserID)
	})

	t.Run("date outside window", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, b.ID, model.BookingInput{BookDate: at(config.DefaultWindowEnd)})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("unknown company", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, b.ID, model.BookingInput{Company: ptr(uint64(404))})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, 404, model.BookingInput{BookDate: at(inWindow)})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	assert.Equal(t, []string{queue.BookingCreated, queue.BookingUpdated, queue.BookingUpdated}, events.types())
}

func TestBookingDelete(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")
	ctx := context.Background()
	b1 := book(t, svc, alice, c.ID)
	b2 := book(t, svc, alice, c.ID)

	err := svc.Delete(ctx, bob, b1.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = store.Bookings().GetByID(ctx, b1.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, b1.ID))
	require.NoError(t, svc.Delete(ctx, admin, b2.ID))

	err = svc.Delete(ctx, alice, b1.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestBookingList(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c1 := newCompany(t, store, "Siriraj")
	c2 := newCompany(t, store, "Ramathibodi")
	ctx := context.Background()
	book(t, svc, alice, c1.ID)
	book(t, svc, alice, c2.ID)
	book(t, svc, bob, c2.ID)

	mine, err := svc.List(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, v := range mine {
		assert.Equal(t, alice.ID, v.UserID)
		assert.Equal(t, "Bangkok", v.Company.Province)
	}

	all, err := svc.List(ctx, admin, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	atC2, err := svc.List(ctx, admin, c2.ID)
	require.NoError(t, err)
	assert.Len(t, atC2, 2)

	// A company scope does not widen what a regular user sees.
	bobs, err := svc.List(ctx, bob, c1.ID)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, bob.ID, bobs[0].UserID)
}

func TestBookingGet(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newBookingService(store, nil)
	c := newCompany(t, store, "Siriraj")
	b := book(t, svc, alice, c.ID)

	v, err := svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Siriraj", v.Company.Name)
	assert.Equal(t, "Vaccination center", v.Company.Description)

	_, err = svc.Get(context.Background(), 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
