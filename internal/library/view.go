package library

import (
	"strings"
	"time"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// PageSize is how many rows of rowHeight fit in viewportHeight, at least one.
func PageSize(viewportHeight, rowHeight int) int {
	if rowHeight <= 0 || viewportHeight <= 0 {
		return 1
	}
	if n := viewportHeight / rowHeight; n > 1 {
		return n
	}
	return 1
}

// Page is one page of the transcript list.
type Page struct {
	Items []*types.Transcript `json:"items"`
	Page  int                 `json:"page"`
	Pages int                 `json:"pages"`
	Total int                 `json:"total"`
}

// Paginate returns page (1-based, clamped to the valid range) of size items.
func Paginate(items []*types.Transcript, page, size int) Page {
	if size < 1 {
		size = 1
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{
		Items: items[start:end],
		Page:  page,
		Pages: pages,
		Total: total,
	}
}

// FilterByDate keeps transcripts created between the calendar days of from
// and to, both inclusive. A zero bound is open.
func FilterByDate(items []*types.Transcript, from, to time.Time) []*types.Transcript {
	if from.IsZero() && to.IsZero() {
		return items
	}
	lo, hi := day(from), day(to)
	out := make([]*types.Transcript, 0, len(items))
	for _, tr := range items {
		d := day(tr.CreatedAt)
		if !from.IsZero() && d.Before(lo) {
			continue
		}
		if !to.IsZero() && d.After(hi) {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// day truncates t to its UTC calendar day.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FilterByName keeps transcripts whose name contains query, ignoring case.
func FilterByName(items []*types.Transcript, query string) []*types.Transcript {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	out := make([]*types.Transcript, 0, len(items))
	for _, tr := range items {
		if strings.Contains(strings.ToLower(tr.Name), query) {
			out = append(out, tr)
		}
	}
	return out
}
