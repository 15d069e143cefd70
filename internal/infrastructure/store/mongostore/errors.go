package mongostore

import (
	"errors"

	"github.com/example/ec-orders/internal/apperr"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server error codes treated as transaction aborts.
const (
	codeWriteConflict = 112
	codeNoSuchTx      = 251
)

const (
	labelTransient     = "TransientTransactionError"
	labelUnknownCommit = "UnknownTransactionCommitResult"
)

var errTxAborted = apperr.New(apperr.TransactionFailure, "transaction aborted, retry the request")

// classify maps driver errors onto the apperr taxonomy. notFound and
// conflict replace ErrNoDocuments and duplicate-key errors when set.
// Errors that are already classified pass through.
func classify(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if notFound != nil && errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	if conflict != nil && mongo.IsDuplicateKeyError(err) {
		return conflict
	}
	if isTransient(err) {
		return apperr.Wrap(apperr.TransactionFailure, errTxAborted.Message, err)
	}
	return apperr.Wrap(apperr.Internal, "", err)
}

// isTransient reports aborts that left nothing behind. A commit with an
// unknown result may already be durable and is never one of them.
func isTransient(err error) bool {
	if hasLabel(err, labelUnknownCommit) {
		return false
	}
	if hasLabel(err, labelTransient) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == codeWriteConflict || ce.Code == codeNoSuchTx
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == codeWriteConflict {
				return true
			}
		}
	}
	return false
}

func hasLabel(err error, label string) bool {
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(label)
}
