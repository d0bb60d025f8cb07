package errx

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// WrapPostgres maps database/sql and lib/pq errors onto AppError.
func WrapPostgres(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(err, KindInvalidInput, http.StatusNotFound, PostgresErrorMessage)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return New(err, KindConflict, http.StatusConflict, PostgresErrorMessage)
	}
	return New(err, KindStoreUnavailable, http.StatusBadGateway, PostgresErrorMessage)
}
