package repositories

import "strings"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage bounds Page so Offset cannot overflow
	MaxPage = 1_000_000
)

// Page carries pagination and ordering for list queries
type Page struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Normalize fills defaults, clamps the limit and keeps SortBy only when it is
// one of allowed (falling back to fallback).
func (p Page) Normalize(allowed []string, fallback string) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}

	sortBy := fallback
	for _, col := range allowed {
		if strings.EqualFold(p.SortBy, col) {
			sortBy = col
			break
		}
	}
	p.SortBy = sortBy

	if strings.EqualFold(p.SortOrder, "asc") {
		p.SortOrder = "asc"
	} else {
		p.SortOrder = "desc"
	}
	return p
}

// Offset returns the number of rows to skip
func (p Page) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	return (min(p.Page, MaxPage) - 1) * min(p.Limit, MaxPageLimit)
}

// Ascending reports whether results are sorted ascending
func (p Page) Ascending() bool {
	return p.SortOrder == "asc"
}
