// ABOUTME: Page window arithmetic for the newest-first article stream
// ABOUTME: Fetches one extra row per page to learn whether another page exists

package paginate

import "fmt"

const (
	// DefaultPageSize matches the reader's articles-per-page setting.
	DefaultPageSize = 5
	// MaxPageSize bounds a single request.
	MaxPageSize = 200
)

// Request identifies one zero-based page of a given size.
type Request struct {
	Page int
	Size int
}

// Error describes an invalid page request.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if r.Page < 0 {
		return &Error{Field: "page", Reason: "must not be negative"}
	}
	if r.Size < 1 {
		return &Error{Field: "page_size", Reason: "must be at least 1"}
	}
	if r.Size > MaxPageSize {
		return &Error{Field: "page_size", Reason: fmt.Sprintf("must be at most %d", MaxPageSize)}
	}
	return nil
}

// WithDefaultSize fills a zero Size with size.
func (r Request) WithDefaultSize(size int) Request {
	if r.Size == 0 {
		r.Size = size
	}
	return r
}

// Window returns the LIMIT and OFFSET to query. The limit is one more than
// the page size; the extra row only signals that a further page exists.
func (r Request) Window() (limit, offset int) {
	return r.Size + 1, r.Page * r.Size
}

// Trim cuts rows fetched with Window down to the page and reports whether
// more rows follow.
func Trim[T any](rows []T, size int) ([]T, bool) {
	if len(rows) > size {
		return rows[:size], true
	}
	return rows, false
}

// Page is one page of results.
type Page[T any] struct {
	Items   []T
	Page    int
	Size    int
	HasMore bool
}

// Fetch runs query with the request's window and trims the result. query
// must return rows in the stream's total order in a single read.
func Fetch[T any](r Request, query func(limit, offset int) ([]T, error)) (*Page[T], error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	limit, offset := r.Window()
	rows, err := query(limit, offset)
	if err != nil {
		return nil, err
	}
	items, more := Trim(rows, r.Size)
	return &Page[T]{Items: items, Page: r.Page, Size: r.Size, HasMore: more}, nil
}
