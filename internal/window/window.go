// Package window slices ordered rows into discrete pages or a growing
// "infinite scroll" window.
package window

// TotalPages returns max(1, ceil(total/pageSize))
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Clamp forces page into [1, TotalPages(total, pageSize)]
func Clamp(page, total, pageSize int) int {
	if page < 1 {
		return 1
	}
	if last := TotalPages(total, pageSize); page > last {
		return last
	}
	return page
}

// Page returns rows [(page-1)*pageSize, page*pageSize). Out of range pages are empty.
func Page[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}

// PageRange is the 1-based inclusive row range shown on a page
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Range returns the "showing X-Y of Z" bounds; {0, 0} when there are no rows
func Range(total, page, pageSize int) PageRange {
	if total <= 0 || pageSize <= 0 {
		return PageRange{}
	}
	page = Clamp(page, total, pageSize)
	start := (page-1)*pageSize + 1
	end := page * pageSize
	if end > total {
		end = total
	}
	return PageRange{Start: start, End: end}
}

// PageNumbers lists the page buttons to show: every page within radius of current
func PageNumbers(current, totalPages, radius int) []int {
	if totalPages < 1 {
		return nil
	}
	lo := max(1, current-radius)
	hi := min(totalPages, current+radius)
	pages := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		pages = append(pages, p)
	}
	return pages
}
