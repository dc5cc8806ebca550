package pagination

import (
	"math"

	"github.com/gin-gonic/gin"

	"github.com/clinica/intranet-api/pkg/validator"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 1000
	// MaxPage keeps Offset within an int32 at any limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Query holds the raw pagination and sort inputs of a request.
type Query struct {
	Page      string
	Limit     string
	SortBy    string
	SortOrder string
}

// FromContext extracts pagination parameters from the gin context.
func FromContext(c *gin.Context) Query {
	return Query{
		Page:      c.Query("page"),
		Limit:     c.Query("limit"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
}

// Params holds validated pagination parameters.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// NewParams validates page and limit, replacing invalid values with the defaults.
func NewParams(page, limit any) Params {
	p, ok := validator.SanitizeInt(page, validator.Min(1), validator.Max(MaxPage))
	if !ok {
		p = DefaultPage
	}

	l, ok := validator.SanitizeInt(limit, validator.Min(1), validator.Max(MaxLimit))
	if !ok {
		l = DefaultLimit
	}

	return Params{
		Page:   int(p),
		Limit:  int(l),
		Offset: int((p - 1) * l),
	}
}

// Params validates the query's page and limit.
func (q Query) Params() Params {
	return NewParams(q.Page, q.Limit)
}

// Meta describes the page returned in a Response.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Response wraps a paginated API response.
type Response[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

func NewResponse[T any](data []T, total, page, limit int) Response[T] {
	if data == nil {
		data = []T{}
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	totalPages := (total + limit - 1) / limit
	return Response[T]{
		Data: data,
		Pagination: Meta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}

// Empty is the response for a query that matched nothing.
func Empty[T any](p Params) Response[T] {
	return NewResponse[T](nil, 0, p.Page, p.Limit)
}
