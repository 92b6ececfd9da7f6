package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", cursor.CreatedAt)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Limit())
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ id string }
	rows := []*row{{"a"}, {"b"}, {"c"}}

	page, info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	page, info = BuildCursorPageInfo(rows, 5, func(r *row) string { return r.id })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestTimeCursor(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 890, time.FixedZone("WIB", 7*3600))
	token := EncodeTimeCursor(snowflake.ID(99), at)
	require.NotEmpty(t, token)

	cursor, err := DecodeTimeCursor(" " + token + " ")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(99), cursor.ID)
	assert.True(t, at.Equal(cursor.CreatedAt))
	assert.Equal(t, time.UTC, cursor.CreatedAt.Location())

	cursor, err = DecodeTimeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	bad := []Cursor{
		{ID: "99", CreatedAt: "yesterday"},
		{ID: "abc", CreatedAt: "2026-01-02T03:04:05Z"},
		{ID: "0", CreatedAt: "2026-01-02T03:04:05Z"},
	}
	for _, c := range bad {
		token, err := EncodeCursor(c)
		require.NoError(t, err)
		_, err = DecodeTimeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, c)
	}
	_, err = DecodeTimeCursor("not base64!")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
