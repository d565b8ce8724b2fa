package pagination

import "math"

// MaxLimit is the largest page size a client may request. Callers reject
// larger limits.
const MaxLimit = 100

// Params holds page based pagination. Page is 1-based.
type Params struct {
	Page  int
	Limit int
}

// New builds Params. Callers validate page and limit before calling.
func New(page, limit int) Params {
	return Params{Page: page, Limit: limit}
}

// Offset returns the number of rows skipped before the current page. It
// saturates at math.MaxInt instead of overflowing on very large pages.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return p.Limit * (p.Page - 1)
}

// NeedsTotal reports whether the total count should be computed. Only the
// first page carries a total; clients keep it while paging forward.
func (p Params) NeedsTotal() bool {
	return p.Page == 1
}

// Response wraps a paginated API response. Total is zero on pages after the first.
type Response struct {
	Data  interface{} `json:"data"`
	Total int         `json:"total"`
}

func NewResponse(data interface{}, total int) *Response {
	return &Response{Data: data, Total: total}
}
