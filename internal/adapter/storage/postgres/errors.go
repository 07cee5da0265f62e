package postgres

import (
	"errors"
	"fmt"

	"marketplace-settlement/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the services need to tell apart.
const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

// wrapErr annotates err with op and, for the SQLSTATEs above, the matching
// storage sentinel so callers can use errors.Is.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, ports.ErrDuplicateKey, err)
		case pgLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, ports.ErrLockTimeout, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
