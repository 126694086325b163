package shared

import "time"

// Page holds pagination and ordering options shared by list queries
type Page struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultPage returns page 1 of 20, newest first
func DefaultPage() Page {
	return Page{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Normalize fills in defaults and clamps the page size
func (p Page) Normalize() Page {
	d := DefaultPage()
	if p.Page < 1 {
		p.Page = d.Page
	}
	if p.PageSize < 1 {
		p.PageSize = d.PageSize
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
	if p.OrderBy == "" {
		p.OrderBy = d.OrderBy
	}
	if p.OrderDir != "asc" {
		p.OrderDir = "desc"
	}
	return p
}

// Offset returns the row offset of the page
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// DateRange is an inclusive date window; zero bounds are open
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate rejects inverted ranges
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return NewValidationError("INVALID_DATE_RANGE", "Date range end must not be before its start")
	}
	return nil
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page Page) Paginated[T] {
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = int(total) / page.PageSize
		if int(total)%page.PageSize > 0 {
			totalPages++
		}
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}
}
