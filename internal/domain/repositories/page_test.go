package repositories

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage_Normalize(t *testing.T) {
	allowed := []string{"created_at", "start_time"}

	p := Page{}.Normalize(allowed, "created_at")
	assert.Equal(t, Page{Page: 1, Limit: DefaultPageLimit, SortBy: "created_at", SortOrder: "desc"}, p)
	assert.Equal(t, 0, p.Offset())

	p = Page{Page: 3, Limit: 500, SortBy: "START_TIME", SortOrder: "ASC"}.Normalize(allowed, "created_at")
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Equal(t, "start_time", p.SortBy)
	assert.True(t, p.Ascending())
	assert.Equal(t, 200, p.Offset())

	p = Page{SortBy: "password; drop table"}.Normalize(allowed, "created_at")
	assert.Equal(t, "created_at", p.SortBy)
}

func TestPage_OffsetIsBoundedForHugePages(t *testing.T) {
	p := Page{Page: math.MaxInt, Limit: MaxPageLimit}.Normalize(nil, "created_at")
	assert.Equal(t, MaxPage, p.Page)
	assert.Equal(t, (MaxPage-1)*MaxPageLimit, p.Offset())
	assert.Positive(t, p.Offset())

	raw := Page{Page: math.MaxInt, Limit: math.MaxInt}
	assert.Equal(t, (MaxPage-1)*MaxPageLimit, raw.Offset())
}
