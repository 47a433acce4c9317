package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrUnknownUser       = errors.New("user does not exist")
)

const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
)

// mapUniqueViolation turns a unique-constraint failure on users into a sentinel
// so callers don't need a read-then-write existence check.
func mapUniqueViolation(err error) error {

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	switch pqErr.Constraint {
	case "users_username_key":
		return ErrDuplicateUsername
	case "users_email_key":
		return ErrDuplicateEmail
	}

	return err
}

// mapForeignKeyViolation reports a row written for a user that was deleted
// after its token was issued.
func mapForeignKeyViolation(err error) error {

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != foreignKeyViolation {
		return err
	}

	switch pqErr.Constraint {
	case "carts_user_id_fkey", "products_seller_id_fkey":
		return ErrUnknownUser
	}

	return err
}
