package repository

import (
	"context"
	"time"

	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/query"
)

// CompanySchema lists the company fields available to list queries.
var CompanySchema = query.NewSchema("-createdAt",
	query.Field{Name: "id", Column: "id", Kind: query.KindNumber},
	query.Field{Name: "name", Column: "name"},
	query.Field{Name: "address", Column: "address"},
	query.Field{Name: "district", Column: "district"},
	query.Field{Name: "province", Column: "province"},
	query.Field{Name: "postalcode", Column: "postal_code"},
	query.Field{Name: "website", Column: "website"},
	query.Field{Name: "description", Column: "description"},
	query.Field{Name: "tel", Column: "tel"},
	query.Field{Name: "region", Column: "region"},
	query.Field{Name: "createdAt", Column: "created_at", Kind: query.KindTime},
)

// CompanyStore persists companies.
type CompanyStore interface {
	// List returns one page of companies matching q, without bookings.
	List(ctx context.Context, q query.Query) ([]model.Company, error)
	Count(ctx context.Context, f query.Filter) (int64, error)
	GetByID(ctx context.Context, id uint64) (*model.Company, error)
	Create(ctx context.Context, c *model.Company) error
	Update(ctx context.Context, c *model.Company) error
	Delete(ctx context.Context, id uint64) error
}

// BookingStore persists bookings.
type BookingStore interface {
	// List returns bookings with the company name, province and tel.
	List(ctx context.Context, f model.BookingFilter) ([]model.BookingView, error)
	ListByCompanies(ctx context.Context, companyIDs []uint64) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	// GetView returns a booking with the company name, description and tel.
	GetView(ctx context.Context, id uint64) (*model.BookingView, error)
	CountByUser(ctx context.Context, userID uint64) (int64, error)
	Create(ctx context.Context, b *model.Booking) error
	Update(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id uint64) error
	DeleteByCompany(ctx context.Context, companyID uint64) (int64, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ConsumeRefresh revokes a live token and returns its owner. Only one
	// caller can consume a given token; the rest get ErrNotFound.
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Store groups the stores and runs units of work atomically.
type Store interface {
	Companies() CompanyStore
	Bookings() BookingStore
	Users() UserStore
	Tokens() TokenStore
	// WithinTx runs fn against a transactional view of the store. The work
	// is committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
