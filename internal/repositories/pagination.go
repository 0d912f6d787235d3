package repositories

import "fmt"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a 1-based offset page request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Validate enforces Number >= 1 and 1 <= Limit <= MaxPageLimit.
func (p Page) Validate() error {
	if p.Number < 1 {
		return fmt.Errorf("page must be a positive number")
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return fmt.Errorf("limit must be between 1 and %d", MaxPageLimit)
	}
	return nil
}

// Pagination is the metadata block returned with list responses.
type Pagination struct {
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(total int64, p Page) Pagination {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: p.Number,
		Limit:       p.Limit,
		HasNextPage: p.Number < totalPages,
		HasPrevPage: p.Number > 1,
	}
}
