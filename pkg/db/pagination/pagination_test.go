package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Size())
}

func TestPageRoundTripsCursor(t *testing.T) {
	ids := []int64{50, 40, 30}

	page, info := Page(ids, 2, func(id int64) int64 { return id })
	assert.Equal(t, []int64{50, 40}, page)
	require.True(t, info.HasMore)

	after, err := Pagination{PageToken: info.NextPageToken}.After()
	require.NoError(t, err)
	assert.Equal(t, int64(40), after)

	last, info := Page(ids[2:], 2, func(id int64) int64 { return id })
	assert.Equal(t, []int64{30}, last)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestAfterRejectsGarbage(t *testing.T) {
	after, err := Pagination{}.After()
	require.NoError(t, err)
	assert.Zero(t, after)

	_, err = Pagination{PageToken: "%%%"}.After()
	assert.ErrorIs(t, err, ErrInvalidPageToken)

	token, err := EncodeCursor(Cursor{ID: "abc"})
	require.NoError(t, err)
	_, err = Pagination{PageToken: token}.After()
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}
