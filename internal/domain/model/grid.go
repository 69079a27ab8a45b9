package model

// ColumnFilter narrows one column. Operator is an open set ("$eq", "$gt", ...).
type ColumnFilter struct {
	ID       string `json:"id"`
	Value    any    `json:"value"`
	Operator string `json:"operator,omitempty"`
}

// SortRule orders by one column.
type SortRule struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// GridQuery is the table-side view of a server-driven page request.
// PageIndex is 0-based; the wire uses 1-based page numbers.
type GridQuery struct {
	PageSize         int            `json:"pageSize"`
	PageIndex        int            `json:"pageIndex"`
	GlobalFilterText string         `json:"globalFilter,omitempty"`
	ColumnFilters    []ColumnFilter `json:"columnFilters,omitempty"`
	Sorting          []SortRule     `json:"sorting,omitempty"`
}

// PageMeta carries the totals reported by the backend.
type PageMeta struct {
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// Page is one fetched page of rows.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
