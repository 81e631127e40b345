package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 500
)

// Pagination holds pagination parameters.
type Pagination struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	Offset   int   `json:"-"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// GetPagination reads page and limit from the query string, falling back to
// the defaults on anything unparsable. The limit is capped at MaxLimit.
func GetPagination(c *fiber.Ctx) Pagination {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func (p *Pagination) SetTotal(total int64) {
	p.Total = total
	p.LastPage = int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func NewPaginatedResponse(data interface{}, pagination Pagination) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Pagination: pagination,
	}
}
