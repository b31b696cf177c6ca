package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

func TestPageSize(t *testing.T) {
	assert.Equal(t, 10, PageSize(600, 60))
	assert.Equal(t, 9, PageSize(590, 60))
	assert.Equal(t, 1, PageSize(30, 60))
	assert.Equal(t, 1, PageSize(600, 0))
}

func TestPaginate(t *testing.T) {
	var items []*types.Transcript
	for i := 0; i < 7; i++ {
		items = append(items, transcript(string(rune('a'+i)), "", base))
	}

	t.Run("should split into pages", func(t *testing.T) {
		p := Paginate(items, 2, 3)
		assert.Equal(t, []string{"d", "e", "f"}, ids(p.Items))
		assert.Equal(t, 3, p.Pages)
		assert.Equal(t, 7, p.Total)
	})

	t.Run("should clamp out of range pages", func(t *testing.T) {
		assert.Equal(t, []string{"g"}, ids(Paginate(items, 9, 3).Items))
		assert.Equal(t, 1, Paginate(items, -1, 3).Page)
	})

	t.Run("should return one empty page for an empty list", func(t *testing.T) {
		p := Paginate(nil, 1, 5)
		assert.Empty(t, p.Items)
		assert.Equal(t, 1, p.Pages)
	})
}

func TestFilterByDate(t *testing.T) {
	items := []*types.Transcript{
		transcript("mar12", "", time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC)),
		transcript("mar10", "", time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)),
		transcript("mar01", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}

	t.Run("should include both bounds by calendar day", func(t *testing.T) {
		got := FilterByDate(items,
			time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, []string{"mar12", "mar10"}, ids(got))
	})

	t.Run("should treat zero bounds as open", func(t *testing.T) {
		assert.Len(t, FilterByDate(items, time.Time{}, time.Time{}), 3)
		assert.Equal(t, []string{"mar10", "mar01"},
			ids(FilterByDate(items, time.Time{}, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))))
	})

	t.Run("should compare offset timestamps by their UTC day", func(t *testing.T) {
		// Arrange
		plus3 := time.FixedZone("+03:00", 3*60*60)
		late := transcript("late", "", time.Date(2024, 1, 2, 1, 0, 0, 0, plus3))
		jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		// Act
		got := FilterByDate([]*types.Transcript{late}, jan1, jan1)

		// Assert
		assert.Equal(t, []string{"late"}, ids(got))
		assert.Empty(t, FilterByDate([]*types.Transcript{late}, jan1.AddDate(0, 0, 1), time.Time{}))
	})
}

func TestFilterByName(t *testing.T) {
	items := []*types.Transcript{
		transcript("a", "Board Meeting", base),
		transcript("b", "Interview", base),
	}
	assert.Equal(t, []string{"a"}, ids(FilterByName(items, " meeting")))
	assert.Len(t, FilterByName(items, ""), 2)
}
