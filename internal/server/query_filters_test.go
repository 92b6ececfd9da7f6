package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuditTimeBound(t *testing.T) {
	got, err := parseAuditTimeBound("", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseAuditTimeBound(" 2026-05-01T10:30:00+07:00 ", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 3, 30, 0, 0, time.UTC), *got)

	got, err = parseAuditTimeBound("2026-05-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseAuditTimeBound("2026-05-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 23, 59, 59, 999999999, time.UTC), *got)

	_, err = parseAuditTimeBound("yesterday", false)
	assert.EqualError(t, err, "invalid_time")
}

func TestParseActiveFilter(t *testing.T) {
	got, err := parseActiveFilter(" ")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseActiveFilter("false")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, *got)

	got, err = parseActiveFilter("1")
	require.NoError(t, err)
	assert.True(t, *got)

	_, err = parseActiveFilter("maybe")
	assert.Error(t, err)
}
