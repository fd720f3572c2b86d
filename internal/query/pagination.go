package query

// Cursor points at a neighbouring page.
type Cursor struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination describes the pages around the current one. A side is nil when
// no such page exists.
type Pagination struct {
	Next *Cursor `json:"next,omitempty"`
	Prev *Cursor `json:"prev,omitempty"`
}

// Paginate computes the neighbouring pages of q given the total number of
// matching records.
func Paginate(q Query, total int64) Pagination {
	var p Pagination
	if int64(q.Offset()+q.Limit) < total {
		p.Next = &Cursor{Page: q.Page + 1, Limit: q.Limit}
	}
	if q.Offset() > 0 {
		p.Prev = &Cursor{Page: q.Page - 1, Limit: q.Limit}
	}
	return p
}
