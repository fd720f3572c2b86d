package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	t.Run("middle page has both neighbours", func(t *testing.T) {
		p := Paginate(Query{Page: 2, Limit: 10}, 25)
		assert.Equal(t, &Cursor{Page: 3, Limit: 10}, p.Next)
		assert.Equal(t, &Cursor{Page: 1, Limit: 10}, p.Prev)
	})

	t.Run("first page has no prev", func(t *testing.T) {
		p := Paginate(Query{Page: 1, Limit: 25}, 30)
		assert.NotNil(t, p.Next)
		assert.Nil(t, p.Prev)
	})

	t.Run("last page has no next", func(t *testing.T) {
		p := Paginate(Query{Page: 3, Limit: 10}, 25)
		assert.Nil(t, p.Next)
		assert.Equal(t, 2, p.Prev.Page)
	})

	t.Run("exact fit has no next", func(t *testing.T) {
		p := Paginate(Query{Page: 2, Limit: 10}, 20)
		assert.Nil(t, p.Next)
	})

	t.Run("empty result", func(t *testing.T) {
		p := Paginate(Query{Page: 1, Limit: 25}, 0)
		assert.Nil(t, p.Next)
		assert.Nil(t, p.Prev)
	})
}
