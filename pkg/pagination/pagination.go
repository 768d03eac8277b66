package pagination

const (
	// DefaultPerPage is the page size when none is requested.
	DefaultPerPage = 24
	// MaxPerPage caps a single page.
	MaxPerPage = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Meta describes the page returned alongside a slice of results.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Normalize fills defaults and clamps out-of-range values.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PerPage <= 0:
		p.PerPage = DefaultPerPage
	case p.PerPage > MaxPerPage:
		p.PerPage = MaxPerPage
	}
	return p
}

// Window returns the [start, end) bounds of the page within total items.
func (p Params) Window(total int) (start, end int) {
	p = p.Normalize()
	start = (p.Page - 1) * p.PerPage
	if start > total {
		start = total
	}
	end = start + p.PerPage
	if end > total {
		end = total
	}
	return start, end
}

// MetaFor builds the page metadata for total items.
func (p Params) MetaFor(total int) Meta {
	p = p.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Meta{Page: p.Page, PerPage: p.PerPage, Total: total, TotalPages: pages}
}

// Slice returns the page of items selected by p.
func Slice[T any](items []T, p Params) ([]T, Meta) {
	start, end := p.Window(len(items))
	return items[start:end], p.MetaFor(len(items))
}
