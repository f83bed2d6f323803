package services

import (
	"errors"
	"fmt"

	"github.com/anjiri1684/logoped_crm/access"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidInput     = errors.New("invalid input")
)

// storeErr wraps a persistence failure. Errors already in the taxonomy pass through.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict, ErrStoreUnavailable, ErrInvalidInput} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// authorize turns an access decision into the error taxonomy.
func authorize(id access.Identity, req access.Requirement) error {
	switch access.Decide(id, req) {
	case access.Allow:
		return nil
	case access.DenyAnonymous:
		return ErrUnauthorized
	default:
		return ErrForbidden
	}
}
