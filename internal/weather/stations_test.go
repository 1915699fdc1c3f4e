package weather

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStationByIDFindsKnownStation(t *testing.T) {
	s, ok := StationByID("94768")
	require.True(t, ok)
	require.Equal(t, "Sydney Observatory Hill", s.Name)
}

func TestStationByIDRejectsUnknown(t *testing.T) {
	_, ok := StationByID("00000")
	require.False(t, ok)
}

func TestNearestStationPicksClosestByGreatCircleDistance(t *testing.T) {
	// Near Sydney Observatory Hill, well away from Sydney Airport.
	s, dist, ok := NearestStation(-33.86, 151.20)
	require.True(t, ok)
	require.Equal(t, "94768", s.ID)
	require.Less(t, dist, 10.0)
}
