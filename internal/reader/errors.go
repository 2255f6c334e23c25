// ABOUTME: Error taxonomy for the reader core
// ABOUTME: Maps component errors onto ValidationError and the not-found sentinel

package reader

import (
	"errors"
	"fmt"

	"github.com/harper/inkreader/internal/discover"
	"github.com/harper/inkreader/internal/fetch"
	"github.com/harper/inkreader/internal/paginate"
	"github.com/harper/inkreader/internal/storage"
	"github.com/harper/inkreader/internal/sync"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned for unknown feeds and articles.
var ErrNotFound = storage.ErrNotFound

// ErrConflictIgnored is returned by SetRead when a later write already won.
var ErrConflictIgnored = sync.ErrConflictIgnored

// FetchError is the fetcher's error type, re-exported for callers of AddFeed.
type FetchError = fetch.FetchError

// ErrFeedExists is wrapped by the ValidationError AddFeed returns for a URL
// that is already subscribed.
var ErrFeedExists = errors.New("feed already subscribed")

// ValidationError reports caller input the core refuses.
type ValidationError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// translate rewrites input errors from the components as ValidationError and
// passes everything else through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var keyErr *sync.KeyError
	if errors.As(err, &keyErr) {
		return invalid("sync_key", keyErr.Reason)
	}
	var pageErr *paginate.Error
	if errors.As(err, &pageErr) {
		return invalid(pageErr.Field, pageErr.Reason)
	}
	var filterErr *storage.FilterError
	if errors.As(err, &filterErr) {
		return invalid(filterErr.Field, filterErr.Reason)
	}
	if errors.Is(err, discover.ErrInvalidURL) {
		return invalid("url", err.Error())
	}
	if errors.Is(err, storage.ErrAmbiguousPrefix) {
		return invalid("id", err.Error())
	}
	return err
}
