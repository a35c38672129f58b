package helpers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateOffsetLimit(t *testing.T) {
	offset, limit := CalculateOffsetLimit(3, 10)
	assert.Equal(t, uint64(20), offset)
	assert.Equal(t, uint64(10), limit)

	offset, limit = CalculateOffsetLimit(0, 1000)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, uint64(MaxPageSize), limit)

	_, limit = CalculateOffsetLimit(1, 0)
	assert.Equal(t, uint64(DefaultPageSize), limit)
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(45, 2, 20)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)

	info = NewPaginationInfo(0, 1, 20)
	assert.Equal(t, 1, info.TotalPages)

	info = NewPaginationInfo(5, 9, 20)
	assert.Equal(t, 1, info.CurrentPage)
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		query    string
		wantPage int
		wantSize int
	}{
		{name: "malformed falls back", query: "page=-1&size=abc", wantPage: 1, wantSize: DefaultPageSize},
		{name: "oversized page is clamped", query: "page=4&size=500", wantPage: 4, wantSize: MaxPageSize},
		{name: "missing uses defaults", query: "", wantPage: 1, wantSize: DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/?"+tt.query, nil)

			page, size := ParsePaginationParams(c)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, LikePattern(" 50%_off "))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, "2026-02-01", FormatDate(d))

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDate("01/02/2026")
	assert.Error(t, err)
}
