package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsNotFound reports whether a repository error means the row does not exist,
// so services can map it to their own not-found result.
func IsNotFound(err error) bool {
	return isNoRows(err)
}
