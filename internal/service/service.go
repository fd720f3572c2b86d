// Package service holds the booking engine, the company directory and the
// auth service. Services depend only on repository interfaces and return
// *apperr.AppError values that handlers map onto HTTP responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/queue"
	"github.com/iliyamo/vaccination-booking/internal/repository"
)

// Publisher delivers domain events after a change commits.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.Event) error { return nil }

// publishTimeout bounds how long a request waits on the broker.
const publishTimeout = 3 * time.Second

// notify publishes ev without letting a broker failure reach the caller.
func notify(ctx context.Context, p Publisher, log *zap.Logger, ev queue.Event) {
	ev.OccurredAt = time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("event not published", zap.String("type", ev.Type), zap.Error(err))
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and reports failures as a
// ValidationFailed error keyed by JSON field name.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validate payload", err)
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
		names = append(names, fe.Field())
	}
	return apperr.ValidationFields("invalid fields: "+strings.Join(names, ", "), fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// storeError maps repository sentinels onto application errors. what names
// the entity in client messages.
func storeError(err error, what string, id uint64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("No %s with the id of %d", what, id)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("%s already exists", what)
	case errors.Is(err, repository.ErrForeignKey):
		return apperr.Conflict("%s with the id of %d is still referenced", what, id)
	}
	return apperr.Internal(what+" store failure", err)
}
