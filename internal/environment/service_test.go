package environment

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Duds/hydro-automation/internal/daylight"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceReportsNullsUntilFirstRefresh(t *testing.T) {
	s := New(testLogger(), nil, nil, "", false, nil)
	require.False(t, s.Warm())
	view := s.View()
	require.Nil(t, view.TemperatureC)
}

func TestServiceRefreshPopulatesDaylightOnly(t *testing.T) {
	calc, err := daylight.NewCalculator("2000", "Australia/Sydney")
	require.NoError(t, err)
	s := New(testLogger(), calc, nil, "", true, nil)

	require.NoError(t, s.Refresh(context.Background()))
	require.True(t, s.Warm())

	view := s.View()
	require.True(t, view.AdaptationEnabled)
	require.False(t, view.Daylight.Sunrise.IsZero())
	require.Nil(t, view.TemperatureC)
}

func TestServiceRepeatedRefreshKeepsDaylightDate(t *testing.T) {
	calc, err := daylight.NewCalculator("2000", "Australia/Sydney")
	require.NoError(t, err)
	s := New(testLogger(), calc, nil, "", true, nil)
	require.NoError(t, s.Refresh(context.Background()))

	first := s.View()
	time.Sleep(time.Millisecond)
	require.NoError(t, s.Refresh(context.Background()))
	second := s.View()

	require.Equal(t, first.Daylight.Date, second.Daylight.Date)
}
