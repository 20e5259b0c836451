package db

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned by repositories when a record does not exist.
// Lookup methods that take a query (FindProjectByName, FindKey, ...) return
// (nil, nil) on no match instead; ErrNotFound is for ID-addressed fetches.
var ErrNotFound = errors.New("record not found")

// StoreErrorClass is a coarse classification of a store failure. Raw store
// errors are never surfaced to API clients; only the class is.
type StoreErrorClass string

const (
	StoreErrConstraint   StoreErrorClass = "constraint_violation"
	StoreErrForeignKey   StoreErrorClass = "foreign_key_violation"
	StoreErrConnectivity StoreErrorClass = "connectivity"
	StoreErrUnknown      StoreErrorClass = "unknown"
)

// Classify maps a store error onto a StoreErrorClass using its gRPC status
// code. The full error must still be logged server-side by the caller.
func Classify(err error) StoreErrorClass {
	switch status.Code(err) {
	case codes.AlreadyExists, codes.InvalidArgument:
		return StoreErrConstraint
	case codes.FailedPrecondition, codes.Aborted:
		return StoreErrForeignKey
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return StoreErrConnectivity
	default:
		return StoreErrUnknown
	}
}
