package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/roommates/internal/ledger"
	"github.com/mmynk/roommates/internal/lock"
	"github.com/mmynk/roommates/internal/storage"
)

var (
	errUnauthenticated = errors.New("not authenticated")
	errNotMember       = errors.New("caller is not a member of this ledger")
)

// classify maps an error to its connect code and a short kind label used
// for metrics.
func classify(err error) (connect.Code, string) {
	switch {
	case errors.Is(err, errUnauthenticated):
		return connect.CodeUnauthenticated, "unauthenticated"
	case errors.Is(err, errNotMember):
		return connect.CodePermissionDenied, "permission_denied"
	case errors.Is(err, ledger.ErrInvalidInput):
		return connect.CodeInvalidArgument, "invalid_input"
	case errors.Is(err, ledger.ErrUnknownMember):
		return connect.CodeNotFound, "unknown_member"
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return connect.CodeNotFound, "not_found"
	case errors.Is(err, ledger.ErrAlreadyInvalidated):
		return connect.CodeFailedPrecondition, "already_invalidated"
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.CodeAlreadyExists, "already_exists"
	case errors.Is(err, storage.ErrVersionConflict):
		return connect.CodeAborted, "conflict"
	case errors.Is(err, lock.ErrNotAcquired):
		return connect.CodeAborted, "lock"
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled, "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded, "deadline"
	default:
		return connect.CodeInternal, "internal"
	}
}
