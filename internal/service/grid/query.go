// Package grid is the server-driven pagination, filtering and sorting contract
// shared by every list page.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
)

// Wire parameter names.
const (
	ParamPageSize = "pageSize"
	ParamPage     = "page"
	ParamSearch   = "search"
	ParamFilters  = "filters"
	ParamSorting  = "sorting"
)

var ErrBadQuery = errors.New("grid: bad query")

// EncodeQuery renders q as backend query parameters. Page numbers go out 1-based.
func EncodeQuery(q model.GridQuery) url.Values {
	filters := q.ColumnFilters
	if filters == nil {
		filters = []model.ColumnFilter{}
	}
	sorting := q.Sorting
	if sorting == nil {
		sorting = []model.SortRule{}
	}

	// Both slices hold plain JSON types, Marshal cannot fail on them.
	rawFilters, _ := json.Marshal(filters)
	rawSorting, _ := json.Marshal(sorting)

	v := url.Values{}
	v.Set(ParamPageSize, strconv.Itoa(q.PageSize))
	v.Set(ParamPage, strconv.Itoa(q.PageIndex+1))
	v.Set(ParamSearch, q.GlobalFilterText)
	v.Set(ParamFilters, string(rawFilters))
	v.Set(ParamSorting, string(rawSorting))
	return v
}

// DecodeQuery is the inverse of EncodeQuery. Missing parameters fall back to the
// first page of defaultPageSize rows.
func DecodeQuery(v url.Values, defaultPageSize int) (model.GridQuery, error) {
	q := model.GridQuery{PageSize: defaultPageSize}

	if s := v.Get(ParamPageSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("%w: pageSize %q", ErrBadQuery, s)
		}
		q.PageSize = n
	}
	if s := v.Get(ParamPage); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, fmt.Errorf("%w: page %q", ErrBadQuery, s)
		}
		q.PageIndex = n - 1
	}
	q.GlobalFilterText = v.Get(ParamSearch)

	if s := v.Get(ParamFilters); s != "" {
		if err := json.Unmarshal([]byte(s), &q.ColumnFilters); err != nil {
			return q, fmt.Errorf("%w: filters: %v", ErrBadQuery, err)
		}
		for _, f := range q.ColumnFilters {
			if f.ID == "" {
				return q, fmt.Errorf("%w: filter without column id", ErrBadQuery)
			}
		}
	}
	if s := v.Get(ParamSorting); s != "" {
		if err := json.Unmarshal([]byte(s), &q.Sorting); err != nil {
			return q, fmt.Errorf("%w: sorting: %v", ErrBadQuery, err)
		}
	}

	if len(q.ColumnFilters) == 0 {
		q.ColumnFilters = nil
	}
	if len(q.Sorting) == 0 {
		q.Sorting = nil
	}
	return q, nil
}
