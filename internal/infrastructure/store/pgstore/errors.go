package pgstore

import (
	"database/sql"
	"errors"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/lib/pq"
)

// SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
)

// classify maps driver errors onto the apperr taxonomy. notFound and
// conflict replace sql.ErrNoRows and unique violations when set. Errors that
// are already classified pass through.
func classify(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if notFound != nil && errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			if conflict != nil {
				return conflict
			}
		case codeSerializationFailure, codeDeadlockDetected:
			return apperr.Wrap(apperr.TransactionFailure, "transaction aborted, retry the request", err)
		}
	}
	return apperr.Wrap(apperr.Internal, "", err)
}
