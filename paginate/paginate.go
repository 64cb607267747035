// Package paginate splits ordered result sets into numbered pages.
//
// A raw page number taken from a query string is resolved leniently: anything
// that is not an integer yields the first page and any integer outside the
// valid range yields the last page, so a listing never fails because of a bad
// page parameter.
package paginate

import (
	"context"
	"strconv"
	"strings"
)

// Page is one page of a paginated result set.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

// A Finder loads the items in [offset, offset+limit) and the total number of
// items in the whole result set.
type Finder[T any] func(ctx context.Context, offset, limit int) ([]T, int, error)

// Get resolves the raw page number and returns that page.
func Get[T any](ctx context.Context, raw string, perPage int, find Finder[T]) (*Page[T], error) {
	if perPage < 1 {
		perPage = 1
	}
	number, valid := parse(raw)

	// The first query also yields the item count. Page numbers that are
	// certainly out of range load the first page instead.
	first := number
	if !valid || number < 1 || number > maxPage {
		first = 1
	}
	items, count, err := find(ctx, (first-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	numPages := NumPages(count, perPage)
	switch {
	case !valid:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}
	if number == first {
		return newPage(items, number, numPages, count, perPage), nil
	}

	items, count, err = find(ctx, (number-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	return newPage(items, number, NumPages(count, perPage), count, perPage), nil
}

// NumPages returns the number of pages needed for count items. An empty result
// set still has one (empty) page.
func NumPages(count, perPage int) int {
	if count <= 0 || perPage < 1 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

const maxPage = 1 << 30

// parse reports the page number in raw and whether it is an integer at all.
func parse(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1, false
	}
	return n, true
}

func newPage[T any](items []T, number, numPages, count, perPage int) *Page[T] {
	return &Page[T]{
		Items:    items,
		Number:   number,
		NumPages: numPages,
		Count:    count,
		PerPage:  perPage,
	}
}

// HasNext reports whether there is a page after this one.
func (p *Page[T]) HasNext() bool {
	return p.Number < p.NumPages
}

// HasPrevious reports whether there is a page before this one.
func (p *Page[T]) HasPrevious() bool {
	return p.Number > 1
}

// HasOtherPages reports whether the result set spans more than one page.
func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p *Page[T]) NextPageNumber() int {
	return p.Number + 1
}

func (p *Page[T]) PreviousPageNumber() int {
	return p.Number - 1
}

// PageRange returns the page numbers 1 through NumPages.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}
