package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/config"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/queue"
	"github.com/iliyamo/vaccination-booking/internal/repository"
)

var (
	alice = model.Identity{ID: 1, Role: model.RoleUser}
	bob   = model.Identity{ID: 2, Role: model.RoleUser}
	admin = model.Identity{ID: 99, Role: model.RoleAdmin}

	inWindow = time.Date(2022, 5, 11, 9, 0, 0, 0, time.UTC)
)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func newCompany(t *testing.T, store repository.Store, name string) model.Company {
	t.Helper()
	c := model.Company{
		Name: name, Address: "2 Wanglang Rd", District: "Bangkok Noi", Province: "Bangkok",
		PostalCode: "10700", Website: "https://example.org", Description: "Vaccination center", Region: "central",
	}
	require.NoError(t, store.Companies().Create(context.Background(), &c))
	return c
}

func newBookingService(store repository.Store, events Publisher) *BookingService {
	return NewBookingService(store, config.DefaultBookingConfig(), events, zap.NewNop())
}

func at(t time.Time) *time.Time { return &t }

func ptr[T any](v T) *T { return &v }

func book(t *testing.T, svc *BookingService, id model.Identity, companyID uint64) *model.Booking {
	t.Helper()
	b, err := svc.Create(context.Background(), id, companyID, model.BookingInput{BookDate: at(inWindow)})
	require.NoError(t, err)
	return b
}

// faultyStore fails company deletes, inside or outside transactions.
type faultyStore struct {
	repository.Store
	err error
}

func (f faultyStore) Companies() repository.CompanyStore {
	return faultyCompanies{CompanyStore: f.Store.Companies(), err: f.err}
}

func (f faultyStore) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(faultyStore{Store: tx, err: f.err})
	})
}

type faultyCompanies struct {
	repository.CompanyStore
	err error
}

func (f faultyCompanies) Delete(context.Context, uint64) error { return f.err }

func seedNamed(t *testing.T, store repository.Store, n int) []model.Company {
	t.Helper()
	out := make([]model.Company, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, newCompany(t, store, fmt.Sprintf("Center %02d", i)))
	}
	return out
}
