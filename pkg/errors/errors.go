// Package errors defines the error taxonomy of the order aggregation pipeline.
package errors

import (
	"errors"
	"fmt"

	"github.com/upcymarket/orderapi/internal/domain"
)

// Fatal errors abort the whole aggregation attempt.
var (
	// ErrAuthenticationMissing means no credential was available; no network
	// call is made once this is detected.
	ErrAuthenticationMissing = errors.New("authentication credential missing")

	// ErrIdentityResolutionFailed means the user lookup failed or returned a
	// payload without a usable identity.
	ErrIdentityResolutionFailed = errors.New("identity resolution failed")

	// ErrOrderListUnavailable means the order list fetch failed at the
	// transport level. A malformed-but-parseable payload is tolerated and is
	// not this error.
	ErrOrderListUnavailable = errors.New("order list unavailable")

	// ErrCompletionTransitionFailed means the mark-completed call failed.
	// No local state changes, so retrying is safe.
	ErrCompletionTransitionFailed = errors.New("completion transition failed")
)

// MetadataLookupError is the per-key soft failure of the metadata joiner.
// It is logged at its origin and converted to fallback display values;
// it never aborts aggregation of other keys.
type MetadataLookupError struct {
	Key domain.ServiceKey
	Err error
}

func (e *MetadataLookupError) Error() string {
	return fmt.Sprintf("metadata lookup failed for market %s service %s: %v",
		e.Key.MarketUUID, e.Key.ServiceUUID, e.Err)
}

func (e *MetadataLookupError) Unwrap() error {
	return e.Err
}
