// Package search holds the shared pagination parameters and page envelope
// used by the signal, trend and user search endpoints.
package search

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultPerPage is the page size used when none is requested.
	DefaultPerPage = 10
	// MaxPerPage caps the page size.
	MaxPerPage = 10000
)

// Params holds pagination and ordering parameters.
type Params struct {
	Page      int
	PerPage   int
	OrderBy   string
	Direction string
}

// ParseParams reads pagination parameters from the query string, applying
// defaults and clamping. allowedColumns whitelists order_by values; the
// first entry is the default.
func ParseParams(c *gin.Context, allowedColumns ...string) Params {
	p := Params{
		Page:      1,
		PerPage:   DefaultPerPage,
		OrderBy:   allowedColumns[0],
		Direction: "desc",
	}
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("per_page")); err == nil && v > 0 && v <= MaxPerPage {
		p.PerPage = v
	}
	if v := c.Query("order_by"); v != "" {
		for _, col := range allowedColumns {
			if v == col {
				p.OrderBy = v
				break
			}
		}
	}
	if v := c.Query("direction"); v == "asc" || v == "desc" {
		p.Direction = v
	}
	return p
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return p.PerPage * (p.Page - 1)
}

// Order returns the ORDER BY clause. OrderBy is whitelisted in ParseParams,
// so the clause is safe to interpolate.
func (p Params) Order() string {
	return p.OrderBy + " " + p.Direction
}

// TotalPages returns ceil(total / per_page).
func (p Params) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// Page is the paginated response envelope. TotalCount reflects the number of
// rows matching the search filters before any role-based sanitisation of
// Data, so a visitor may receive fewer rows than the count suggests.
type Page[T any] struct {
	PerPage     int   `json:"per_page"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	Data        []T   `json:"data"`
}

// NewPage assembles a page envelope from retrieved rows and the pre-filter
// match count.
func NewPage[T any](data []T, total int64, p Params) Page[T] {
	return Page[T]{
		PerPage:     p.PerPage,
		CurrentPage: p.Page,
		TotalPages:  p.TotalPages(total),
		TotalCount:  total,
		Data:        data,
	}
}
