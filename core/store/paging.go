package store

// PageRequest carries 1-based pagination parameters. Callers validate at the
// HTTP boundary; values reaching a store are assumed positive.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta computes totalPages = ceil(total/limit).
func NewPageMeta(req PageRequest, total int) PageMeta {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	return PageMeta{Page: req.Page, Limit: req.Limit, Total: total, TotalPages: pages}
}
