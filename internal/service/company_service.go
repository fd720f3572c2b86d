package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/query"
	"github.com/iliyamo/vaccination-booking/internal/queue"
	"github.com/iliyamo/vaccination-booking/internal/repository"
)

// CompanyPage is one page of a company listing.
type CompanyPage struct {
	Items      []model.Company
	Total      int64
	Pagination query.Pagination
}

// CompanyService is the company directory. Callers are expected to have
// checked the admin role before calling Create, Update or Delete.
type CompanyService struct {
	store  repository.Store
	events Publisher
	log    *zap.Logger
}

func NewCompanyService(store repository.Store, events Publisher, log *zap.Logger) *CompanyService {
	if events == nil {
		events = NopPublisher{}
	}
	return &CompanyService{store: store, events: events, log: log.Named("company")}
}

// List returns one page of companies matching q, each with its bookings.
func (s *CompanyService) List(ctx context.Context, q query.Query) (*CompanyPage, error) {
	total, err := s.store.Companies().Count(ctx, q.Filter)
	if err != nil {
		return nil, apperr.Internal("count companies", err)
	}
	items, err := s.store.Companies().List(ctx, q)
	if err != nil {
		return nil, apperr.Internal("list companies", err)
	}

	if len(items) > 0 {
		ids := make([]uint64, len(items))
		for i, c := range items {
			ids[i] = c.ID
		}
		bookings, err := s.store.Bookings().ListByCompanies(ctx, ids)
		if err != nil {
			return nil, apperr.Internal("list company bookings", err)
		}
		byCompany := make(map[uint64][]model.Booking, len(items))
		for _, b := range bookings {
			byCompany[b.CompanyID] = append(byCompany[b.CompanyID], b)
		}
		for i := range items {
			items[i].Bookings = byCompany[items[i].ID]
			if items[i].Bookings == nil {
				items[i].Bookings = []model.Booking{}
			}
		}
	}

	return &CompanyPage{Items: items, Total: total, Pagination: query.Paginate(q, total)}, nil
}

// Get returns one company.
func (s *CompanyService) Get(ctx context.Context, companyID uint64) (*model.Company, error) {
	c, err := s.store.Companies().GetByID(ctx, companyID)
	if err != nil {
		return nil, storeError(err, "company", companyID)
	}
	return c, nil
}

// Create validates and stores a new company. Names are unique.
func (s *CompanyService) Create(ctx context.Context, in model.Company) (*model.Company, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	c := in
	c.ID = 0
	c.Bookings = nil
	if err := s.store.Companies().Create(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("A company named %q already exists", c.Name)
		}
		return nil, apperr.Internal("create company", err)
	}
	s.log.Info("company created", zap.Uint64("company_id", c.ID), zap.String("name", c.Name))
	return &c, nil
}

// Update applies a partial update. Present fields obey the create limits.
func (s *CompanyService) Update(ctx context.Context, companyID uint64, patch model.CompanyPatch) (*model.Company, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	c, err := s.store.Companies().GetByID(ctx, companyID)
	if err != nil {
		return nil, storeError(err, "company", companyID)
	}
	patch.Apply(c)
	if err := validateStruct(*c); err != nil {
		return nil, err
	}
	if err := s.store.Companies().Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("A company named %q already exists", c.Name)
		}
		return nil, apperr.Internal("update company", err)
	}
	return c, nil
}

// Delete removes a company and all of its bookings in one transaction:
// bookings first, then the company. Either both steps apply or neither.
func (s *CompanyService) Delete(ctx context.Context, companyID uint64) error {
	var removed int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Companies().GetByID(ctx, companyID); err != nil {
			return err
		}
		n, err := tx.Bookings().DeleteByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		removed = n
		return tx.Companies().Delete(ctx, companyID)
	})
	if err != nil {
		return storeError(err, "company", companyID)
	}

	s.log.Info("company deleted", zap.Uint64("company_id", companyID), zap.Int64("bookings_removed", removed))
	notify(ctx, s.events, s.log, queue.Event{Type: queue.CompanyDeleted, CompanyID: companyID, Removed: removed})
	return nil
}
