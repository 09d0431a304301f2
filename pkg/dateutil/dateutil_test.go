package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthsBetween(t *testing.T) {
	jan := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MonthsBetween(jan, jan))
	assert.Equal(t, 11, MonthsBetween(jan, time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, MonthsBetween(jan, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, MonthsBetween(jan, time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2021-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseMonth("2021-07-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseMonth("July 2021")
	assert.Error(t, err)
}

func TestAddMonths(t *testing.T) {
	nov := time.Date(2020, 11, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), AddMonths(nov, 3))
}

func TestFormatMonth(t *testing.T) {
	assert.Equal(t, "2020-03", FormatMonth(time.Date(2020, 3, 14, 9, 0, 0, 0, time.UTC)))
}
