package service

import (
	"errors"
	"fmt"

	"marketplace-settlement/internal/core/ports"
	"marketplace-settlement/pkg/apperror"
)

// storageError converts a repository failure into an AppError. Lock waits
// that ran out surface as SYS_002 so clients can retry later; everything
// else is SYS_001.
func storageError(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, ports.ErrLockTimeout) {
		return apperror.ErrLockTimeout(fmt.Errorf("%s: %w", op, err))
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}
