package domain

// PaginatedResult is a page of items plus the totals needed to render paging.
type PaginatedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginatedResult builds a PaginatedResult, computing the page count.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) PaginatedResult[T] {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedResult[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// PageBounds returns the [start, end) slice bounds for page/limit over n items.
func PageBounds(n, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return 0, 0
	}
	start := (page - 1) * limit
	if start > n {
		start = n
	}
	end := start + limit
	if end > n {
		end = n
	}
	return start, end
}

// Currency codes accepted for booking prices.
const (
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyMYR = "MYR"
)
