package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = NewSchema("-createdAt",
	Field{Name: "id", Column: "id", Kind: KindNumber},
	Field{Name: "name", Column: "name"},
	Field{Name: "tel", Column: "tel"},
	Field{Name: "region", Column: "region"},
	Field{Name: "price", Column: "price", Kind: KindNumber},
	Field{Name: "createdAt", Column: "created_at", Kind: KindTime},
)

func mustParse(t *testing.T, raw string) Query {
	t.Helper()
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	q, err := testSchema.Parse(v)
	require.NoError(t, err)
	return q
}

func TestParse_Defaults(t *testing.T) {
	q := mustParse(t, "")

	assert.Empty(t, q.Filter)
	assert.Empty(t, q.Select)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, 0, q.Offset())
	require.Len(t, q.Sort, 1)
	assert.Equal(t, "createdAt", q.Sort[0].Field.Name)
	assert.True(t, q.Sort[0].Desc)
}

func TestParse_NonNumericPaginationFallsBack(t *testing.T) {
	q := mustParse(t, "page=abc&limit=-4")
	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
}

func TestParse_LimitIsCapped(t *testing.T) {
	q := mustParse(t, "limit=9223372036854775807")
	assert.Equal(t, MaxLimit, q.Limit)

	q = mustParse(t, "limit=4611686018427387904&page=3")
	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 200, q.Offset())
}

func TestParse_PageOutOfRange(t *testing.T) {
	for _, raw := range []string{
		"page=9223372036854775807&limit=2",
		"page=9223372036854775807",
		"page=92233720368547759&limit=100",
	} {
		t.Run(raw, func(t *testing.T) {
			v, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = testSchema.Parse(v)
			var qe *Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, "page", qe.Param)
		})
	}

	// Too large to be a number at all: treated as absent.
	q := mustParse(t, "page=99999999999999999999")
	assert.Equal(t, DefaultPage, q.Page)
}

func TestParse_ReservedNamesAreNotFilters(t *testing.T) {
	q := mustParse(t, "select=name&sort=name&page=2&limit=10")
	assert.Empty(t, q.Filter)
	assert.Equal(t, 10, q.Offset())
}

func TestParse_Operators(t *testing.T) {
	q := mustParse(t, "price[gte]=100&price[lt]=200&region[in]=north,east&name=Central")
	require.Len(t, q.Filter, 4)

	byOp := map[Op]Condition{}
	for _, c := range q.Filter {
		byOp[c.Op] = c
	}
	assert.Equal(t, "price", byOp[OpGte].Field.Name)
	assert.Equal(t, []any{int64(100)}, byOp[OpGte].Args())
	assert.Equal(t, []string{"200"}, byOp[OpLt].Values)
	assert.Equal(t, []string{"north", "east"}, byOp[OpIn].Values)
	assert.Equal(t, []string{"Central"}, byOp[OpEq].Values)
}

func TestParse_RepeatedPlainValueBecomesIn(t *testing.T) {
	q := mustParse(t, "region=north&region=south")
	require.Len(t, q.Filter, 1)
	assert.Equal(t, OpIn, q.Filter[0].Op)
	assert.Equal(t, []string{"north", "south"}, q.Filter[0].Values)
}

func TestParse_TimeValues(t *testing.T) {
	q := mustParse(t, "createdAt[gte]=2022-05-10")
	require.Len(t, q.Filter, 1)
	assert.Equal(t, []any{time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC)}, q.Filter[0].Args())
}

func TestParse_SelectAndSort(t *testing.T) {
	q := mustParse(t, "select=name,tel,name&sort=-name,+price")

	require.Len(t, q.Select, 2)
	assert.Equal(t, "name", q.Select[0].Name)
	assert.Equal(t, "tel", q.Select[1].Name)
	assert.True(t, q.Selected("tel"))
	assert.False(t, q.Selected("region"))

	require.Len(t, q.Sort, 2)
	assert.Equal(t, SortKey{Field: Field{Name: "name", Column: "name"}, Desc: true}, q.Sort[0])
	assert.False(t, q.Sort[1].Desc)
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"unknown field":      "colour=red",
		"unknown operator":   "price[ne]=5",
		"operator injection": "price[$where]=1",
		"bad name":           "price[gte=5",
		"not a number":       "price[gt]=cheap",
		"empty in":           "region[in]=,",
		"multiple gt values": "price[gt]=1&price[gt]=2",
		"unknown select":     "select=password",
		"unknown sort":       "sort=-password",
		"bad time":           "createdAt[lt]=yesterday",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			v, err := url.ParseQuery(raw)
			require.NoError(t, err)
			_, err = testSchema.Parse(v)
			var qe *Error
			assert.ErrorAs(t, err, &qe)
		})
	}
}

func TestNewSchema_PanicsOnBadDefaultSort(t *testing.T) {
	assert.Panics(t, func() {
		NewSchema("-missing", Field{Name: "name", Column: "name"})
	})
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "eq", OpEq.String())
	assert.Equal(t, "lte", OpLte.String())
	assert.Equal(t, "in", OpIn.String())
}
