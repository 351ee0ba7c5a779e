package pagination

// Page/limit offset pagination for order and notification listings,
// newest rows first.

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps the page number to 1-based counting.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Offset converts the normalized page/limit pair into a row offset.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// PageSize returns the normalized limit.
func (p Params) PageSize() int {
	return NormalizeLimit(p.Limit)
}

// Meta describes one returned page alongside the total row count.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalRows  int64 `json:"total_rows"`
	TotalPages int64 `json:"total_pages"`
}

// BuildMeta derives the page metadata for a result set.
func BuildMeta(params Params, totalRows int64) Meta {
	limit := NormalizeLimit(params.Limit)
	pages := totalRows / int64(limit)
	if totalRows%int64(limit) != 0 {
		pages++
	}
	return Meta{
		Page:       NormalizePage(params.Page),
		Limit:      limit,
		TotalRows:  totalRows,
		TotalPages: pages,
	}
}
