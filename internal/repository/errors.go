// Package repository defines the persistence ports used by the services and
// their MySQL and in-memory implementations. Sentinel errors let higher
// layers distinguish "not found" and "duplicate" from other failures.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint, such as
// a duplicate company name or user email.
var ErrConflict = errors.New("conflict")

// ErrForeignKey is returned when a write breaks the bookings to companies
// reference: a booking must point at an existing company and a company with
// bookings cannot be deleted.
var ErrForeignKey = errors.New("foreign key constraint fails")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451 // delete or update of a parent row
	mysqlNoReferencedRow = 1452 // insert or update of a child row
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return ErrConflict
	case mysqlRowIsReferenced, mysqlNoReferencedRow:
		return ErrForeignKey
	}
	return err
}
