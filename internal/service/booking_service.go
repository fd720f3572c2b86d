package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/config"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/queue"
	"github.com/iliyamo/vaccination-booking/internal/repository"
)

// BookingService is the booking engine: it enforces the booking window,
// the per-user quota and ownership rules.
//
// The quota check reads the current count and then inserts, without a lock.
// Two concurrent creates from a user at quota-1 can both pass.
type BookingService struct {
	store  repository.Store
	cfg    config.BookingConfig
	events Publisher
	log    *zap.Logger
}

func NewBookingService(store repository.Store, cfg config.BookingConfig, events Publisher, log *zap.Logger) *BookingService {
	if events == nil {
		events = NopPublisher{}
	}
	return &BookingService{store: store, cfg: cfg, events: events, log: log.Named("booking")}
}

// List returns the bookings visible to id. Admins see all bookings, or
// those of companyID when it is non-zero. Everyone else sees only their own.
func (s *BookingService) List(ctx context.Context, id model.Identity, companyID uint64) ([]model.BookingView, error) {
	f := model.BookingFilter{UserID: id.ID}
	if Can(RelationOf(id, 0), CapListAll) {
		f = model.BookingFilter{CompanyID: companyID}
	}
	out, err := s.store.Bookings().List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("list bookings", err)
	}
	return out, nil
}

// Get returns one booking with its company name, description and tel.
func (s *BookingService) Get(ctx context.Context, bookingID uint64) (*model.BookingView, error) {
	v, err := s.store.Bookings().GetView(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "booking", bookingID)
	}
	return v, nil
}

// Create books companyID for id. The owner is always id; any user sent by
// the client is ignored.
func (s *BookingService) Create(ctx context.Context, id model.Identity, companyID uint64, in model.BookingInput) (*model.Booking, error) {
	if _, err := s.store.Companies().GetByID(ctx, companyID); err != nil {
		return nil, storeError(err, "company", companyID)
	}
	if err := s.checkDate(in.BookDate, true); err != nil {
		return nil, err
	}

	if !Can(RelationOf(id, 0), CapNoQuota) {
		n, err := s.store.Bookings().CountByUser(ctx, id.ID)
		if err != nil {
			return nil, apperr.Internal("count bookings", err)
		}
		if n >= int64(s.cfg.MaxActivePerUser) {
			return nil, apperr.QuotaExceeded("The user with ID %d has already made %d bookings", id.ID, s.cfg.MaxActivePerUser)
		}
	}

	b := &model.Booking{UserID: id.ID, CompanyID: companyID, BookDate: in.BookDate.UTC()}
	if err := s.store.Bookings().Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, apperr.NotFound("No company with the id of %d", companyID)
		}
		return nil, apperr.Internal("create booking", err)
	}

	s.log.Info("booking created", zap.Uint64("booking_id", b.ID), zap.Uint64("user_id", b.UserID), zap.Uint64("company_id", b.CompanyID))
	notify(ctx, s.events, s.log, queue.Event{
		Type: queue.BookingCreated, BookingID: b.ID, UserID: b.UserID, CompanyID: b.CompanyID, BookDate: &b.BookDate,
	})
	return b, nil
}

// Update changes the date and/or company of a booking owned by id (or any
// booking when id is an admin). The owner cannot be changed.
func (s *BookingService) Update(ctx context.Context, id model.Identity, bookingID uint64, in model.BookingInput) (*model.Booking, error) {
	b, err := s.authorized(ctx, id, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDate(in.BookDate, false); err != nil {
		return nil, err
	}
	if in.Company != nil && *in.Company != b.CompanyID {
		if _, err := s.store.Companies().GetByID(ctx, *in.Company); err != nil {
			return nil, storeError(err, "company", *in.Company)
		}
		b.CompanyID = *in.Company
	}
	if in.BookDate != nil {
		b.BookDate = in.BookDate.UTC()
	}

	if err := s.store.Bookings().Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, apperr.NotFound("No company with the id of %d", b.CompanyID)
		}
		return nil, apperr.Internal("update booking", err)
	}
	updated, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "booking", bookingID)
	}

	notify(ctx, s.events, s.log, queue.Event{
		Type: queue.BookingUpdated, BookingID: updated.ID, UserID: updated.UserID, CompanyID: updated.CompanyID, BookDate: &updated.BookDate,
	})
	return updated, nil
}

// Delete removes a booking owned by id (or any booking for admins).
func (s *BookingService) Delete(ctx context.Context, id model.Identity, bookingID uint64) error {
	b, err := s.authorized(ctx, id, bookingID)
	if err != nil {
		return err
	}
	if err := s.store.Bookings().Delete(ctx, bookingID); err != nil {
		return storeError(err, "booking", bookingID)
	}

	s.log.Info("booking deleted", zap.Uint64("booking_id", b.ID), zap.Uint64("by", id.ID))
	notify(ctx, s.events, s.log, queue.Event{
		Type: queue.BookingDeleted, BookingID: b.ID, UserID: b.UserID, CompanyID: b.CompanyID,
	})
	return nil
}

// authorized loads a booking and checks that id may modify it.
func (s *BookingService) authorized(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "booking", bookingID)
	}
	if !Can(RelationOf(id, b.UserID), CapModify) {
		return nil, apperr.Forbidden("User %d is not authorized to modify booking %d", id.ID, bookingID)
	}
	return b, nil
}

func (s *BookingService) checkDate(d *time.Time, required bool) error {
	if d == nil {
		if required {
			return apperr.ValidationFields("bookDate is required", map[string]string{"bookDate": "is required"})
		}
		return nil
	}
	if !s.cfg.InWindow(*d) {
		return apperr.ValidationFields("bookDate is outside the booking window", map[string]string{
			"bookDate": "must be on or after " + s.cfg.WindowStart.Format(time.RFC3339) +
				" and before " + s.cfg.WindowEnd.Format(time.RFC3339),
		})
	}
	return nil
}
