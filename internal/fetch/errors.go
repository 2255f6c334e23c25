// ABOUTME: FetchError describes why retrieving or parsing a feed failed
// ABOUTME: Kinds separate network, status, size, parse, and SSRF-block failures

package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindStatus   Kind = "status"
	KindTooLarge Kind = "too_large"
	KindParse    Kind = "parse"
	KindBlocked  Kind = "blocked"
)

// FetchError is returned for every failure to turn a URL into a parsed feed.
// It is never fatal to a refresh cycle; callers record it on the feed.
type FetchError struct {
	URL        string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is (or wraps) a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ParseError wraps a feed parse failure for url.
func ParseError(url string, err error) *FetchError {
	return &FetchError{URL: url, Kind: KindParse, Err: err}
}
