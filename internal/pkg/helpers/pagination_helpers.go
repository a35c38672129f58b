package helpers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/frogmembers/api/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultPage     = 1
)

// normalizePage falls back to the first page and clamps the size to [1, MaxPageSize]
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// CalculateOffsetLimit converts a 1-based page into SQL offset and limit
func CalculateOffsetLimit(page, size int) (offset uint64, limit uint64) {
	page, size = normalizePage(page, size)
	return uint64((page - 1) * size), uint64(size)
}

// NewPaginationInfo builds the pagination block for a list response.
// An empty result still reports one page.
func NewPaginationInfo(totalItems int64, page, size int) dto.PaginationInfo {
	page, size = normalizePage(page, size)

	totalPages := 1
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(size)))
	}

	return dto.PaginationInfo{
		CurrentPage: min(page, totalPages),
		TotalPages:  totalPages,
		PageSize:    size,
		TotalItems:  totalItems,
	}
}

// ParsePaginationParams reads ?page= and ?size=, ignoring malformed values
func ParsePaginationParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page"))
	size, _ = strconv.Atoi(c.Query("size"))
	return normalizePage(page, size)
}

// ParseInt64Param reads a positive int64 path parameter
func ParseInt64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
