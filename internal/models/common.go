package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListOptions carries limit/offset paging and the requested sort.
type ListOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps the paging window to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > MaxPageLimit {
		o.Limit = DefaultPageLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Paginate builds the pagination block for a list response.
func (o ListOptions) Paginate(total int) Pagination {
	n := o.Normalize()
	return Pagination{Total: total, Limit: n.Limit, Offset: n.Offset}
}
