package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstSession(t *testing.T) {
	wednesday := time.Date(2026, time.March, 4, 15, 30, 0, 0, time.UTC)

	got, err := firstSession("", wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC), got)

	sunday := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	got, err = firstSession("", sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC), got)

	got, err = firstSession("2026-01-11", wednesday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 11, 0, 0, 0, 0, time.UTC), got)

	_, err = firstSession("11/01/2026", wednesday)
	assert.Error(t, err)
}
