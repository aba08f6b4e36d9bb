package grpcapi

import (
	"context"
	"errors"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var invalidArgument = []error{
	domain.ErrValidation,
	ledger.ErrInvalidAmount,
	ledger.ErrInvalidReason,
	ledger.ErrIdempotencyKeyRequired,
	ledger.ErrIdempotencyKeyTooLong,
	ledger.ErrInvalidCursor,
}

// toStatus converts a service error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeOf(err), err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return codes.FailedPrecondition
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ledger.ErrContention):
		return codes.Aborted
	case errors.Is(err, domain.ErrAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return codes.InvalidArgument
		}
	}
	return codes.Internal
}
