package library

// Paginate returns page number page (zero-based) of items, perPage items at
// a time, and the total page count. An empty input has one empty page.
// Out-of-range pages return an empty slice.
func Paginate[T any](items []T, perPage, page int) ([]T, int) {
	if perPage <= 0 {
		perPage = 1
	}
	pages := (len(items) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 0 || page >= pages {
		return []T{}, pages
	}

	start := page * perPage
	end := min(start+perPage, len(items))
	return items[start:end], pages
}
