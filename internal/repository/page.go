package repository

import (
	"fmt"
	"strings"
)

// DefaultPageSize applies when the caller does not ask for a size.
const DefaultPageSize = 20

// MaxPageSize bounds a single page.
const MaxPageSize = 2000

// SortField enumerates the columns users can be ordered by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByUsername  SortField = "username"
	SortByEmail     SortField = "email"
	SortByCreatedAt SortField = "created_at"
)

// PageRequest describes a zero-based page of users.
type PageRequest struct {
	Page int
	Size int
	Sort SortField
	Desc bool
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Normalize fills defaults and clamps out-of-range values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Sort == "" {
		p.Sort = SortByID
	}
	return p
}

// ParseSort reads a "field,dir" expression such as "username,desc".
func ParseSort(expr string) (SortField, bool, error) {
	if expr == "" {
		return SortByID, false, nil
	}
	parts := strings.SplitN(expr, ",", 2)
	field := SortField(strings.ToLower(strings.TrimSpace(parts[0])))
	switch field {
	case SortByID, SortByUsername, SortByEmail, SortByCreatedAt:
	default:
		return "", false, fmt.Errorf("unsupported sort field %q", parts[0])
	}
	desc := false
	if len(parts) == 2 {
		switch strings.ToLower(strings.TrimSpace(parts[1])) {
		case "", "asc":
		case "desc":
			desc = true
		default:
			return "", false, fmt.Errorf("unsupported sort direction %q", parts[1])
		}
	}
	return field, desc, nil
}

// Page is one slice of a larger listing.
type Page[T any] struct {
	Content []T
	Number  int
	Size    int
	Total   int64
}

// TotalPages returns the number of pages needed to cover Total.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}
