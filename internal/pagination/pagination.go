// Package pagination computes page counts, clamped positions and the page-number window
// shown under a listing.
package pagination

const (
	DefaultPageSize = 5
	MaxPageSize     = 99
	WindowSize      = 10
)

type Pager struct {
	Total       int
	PageSize    int
	TotalPages  int
	Current     int
	WindowStart int
	WindowEnd   int
	HasPrev     bool
	HasNext     bool
	Offset      int
}

// ClampPageSize maps sizes outside [1, MaxPageSize] into range: non-positive sizes fall
// back to DefaultPageSize, oversized ones to MaxPageSize.
func ClampPageSize(size int) int {
	if size < 1 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Calculate builds the pager for total items. Page size and page are clamped first,
// and a page past the end is pulled back to the last page.
func Calculate(total, pageSize, page int) Pager {
	if total < 0 {
		total = 0
	}
	pageSize = ClampPageSize(pageSize)
	page = ClampPage(page)

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	current := min(page, totalPages)
	start, end := Window(current, totalPages)

	return Pager{
		Total:       total,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		Current:     current,
		WindowStart: start,
		WindowEnd:   end,
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
		Offset:      (current - 1) * pageSize,
	}
}

// Window returns the block of at most WindowSize consecutive pages holding current.
func Window(current, totalPages int) (start, end int) {
	if totalPages < 1 || current < 1 {
		return 1, 1
	}
	start = ((current-1)/WindowSize)*WindowSize + 1
	end = min(start+WindowSize-1, totalPages)
	if end < start {
		return 1, 1
	}
	return start, end
}

// Empty is the pager of a listing with nothing to show.
func Empty(pageSize int) Pager {
	return Calculate(0, pageSize, 1)
}

// Bounds returns the half-open slice range of the current page over n items.
func (p Pager) Bounds(n int) (lo, hi int) {
	lo = min(p.Offset, n)
	hi = min(lo+p.PageSize, n)
	return lo, hi
}
