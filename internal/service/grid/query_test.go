package grid

import (
	"net/url"
	"testing"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQuery_WireShape(t *testing.T) {
	v := EncodeQuery(model.GridQuery{
		PageSize:         25,
		PageIndex:        2,
		GlobalFilterText: "lamp",
		ColumnFilters:    []model.ColumnFilter{{ID: "status", Value: "paid", Operator: "$eq"}},
		Sorting:          []model.SortRule{{ID: "created_at", Desc: true}},
	})

	assert.Equal(t, "25", v.Get("pageSize"))
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "lamp", v.Get("search"))
	assert.JSONEq(t, `[{"id":"status","value":"paid","operator":"$eq"}]`, v.Get("filters"))
	assert.JSONEq(t, `[{"id":"created_at","desc":true}]`, v.Get("sorting"))
}

func TestEncodeQuery_EmptyListsAreArrays(t *testing.T) {
	v := EncodeQuery(model.GridQuery{PageSize: 10})
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "[]", v.Get("filters"))
	assert.Equal(t, "[]", v.Get("sorting"))
}

func TestQuery_RoundTrip(t *testing.T) {
	cases := []model.GridQuery{
		{PageSize: 10},
		{PageSize: 50, PageIndex: 4, GlobalFilterText: "a&b=c ?"},
		{
			PageSize:      10,
			PageIndex:     1,
			ColumnFilters: []model.ColumnFilter{{ID: "name", Value: "chair", Operator: "$ilike"}, {ID: "active", Value: true}},
			Sorting:       []model.SortRule{{ID: "price"}, {ID: "id", Desc: true}},
		},
	}

	for _, want := range cases {
		// Pass through a real query string as the browser would.
		parsed, err := url.ParseQuery(EncodeQuery(want).Encode())
		require.NoError(t, err)

		got, err := DecodeQuery(parsed, 99)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDecodeQuery_Defaults(t *testing.T) {
	q, err := DecodeQuery(url.Values{}, 10)
	require.NoError(t, err)
	assert.Equal(t, model.GridQuery{PageSize: 10}, q)
}

func TestDecodeQuery_Rejects(t *testing.T) {
	bad := []url.Values{
		{"pageSize": {"0"}},
		{"pageSize": {"ten"}},
		{"page": {"0"}},
		{"filters": {"{"}},
		{"filters": {`[{"value":1}]`}},
		{"sorting": {"nope"}},
	}
	for _, v := range bad {
		_, err := DecodeQuery(v, 10)
		assert.ErrorIs(t, err, ErrBadQuery, v.Encode())
	}
}
