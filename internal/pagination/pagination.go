package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Defaults and bounds for page sizes.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params carries pagination and ordering inputs parsed from a request.
type Params struct {
	Page     int
	PageSize int
	Ordering string
}

// FromQuery parses page, page_size and ordering query parameters.
func FromQuery(c *gin.Context) Params {
	page, _ := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_size")))
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Params{Page: page, PageSize: size, Ordering: strings.TrimSpace(c.Query("ordering"))}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// OrderClause maps a requested ordering field onto a SQL ORDER BY clause.
// A leading "-" selects descending order. Fields outside the allow-list fall
// back to the default field, never to raw client input.
func OrderClause(requested string, allowed map[string]struct{}, fallback string) string {
	field := strings.TrimSpace(requested)
	desc := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")

	if _, ok := allowed[field]; !ok {
		field = fallback
		desc = false
	}
	if desc {
		return field + " DESC"
	}
	return field + " ASC"
}
