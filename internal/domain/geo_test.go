package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters(t *testing.T) {
	t.Run("identical points are exactly zero", func(t *testing.T) {
		p := Geo{Lat: 41.8651, Lng: -80.7898}
		assert.Zero(t, DistanceMeters(p, p))
	})

	t.Run("symmetric", func(t *testing.T) {
		a := Geo{Lat: 41.8651, Lng: -80.7898}
		b := Geo{Lat: 41.8700, Lng: -80.7850}
		assert.Equal(t, DistanceMeters(a, b), DistanceMeters(b, a))
	})

	t.Run("known distance", func(t *testing.T) {
		// Roughly one degree of latitude at the equator.
		a := Geo{Lat: 0, Lng: 0}
		b := Geo{Lat: 1, Lng: 0}
		assert.InDelta(t, 111195, DistanceMeters(a, b), 50)
	})

	t.Run("sub-meter precision at street scale", func(t *testing.T) {
		a := Geo{Lat: 41.865100, Lng: -80.789800}
		b := Geo{Lat: 41.865101, Lng: -80.789799}
		d := DistanceMeters(a, b)
		assert.Greater(t, d, 0.0)
		assert.Less(t, d, 1.0)
	})
}

func TestBearingDegrees(t *testing.T) {
	t.Run("cardinal directions", func(t *testing.T) {
		origin := Geo{Lat: 41.8651, Lng: -80.7898}

		north := Geo{Lat: 41.8700, Lng: -80.7898}
		assert.InDelta(t, 0, BearingDegrees(origin, north), 0.01)

		east := Geo{Lat: 41.8651, Lng: -80.7800}
		assert.InDelta(t, 90, BearingDegrees(origin, east), 0.5)

		south := Geo{Lat: 41.8600, Lng: -80.7898}
		assert.InDelta(t, 180, BearingDegrees(origin, south), 0.01)

		west := Geo{Lat: 41.8651, Lng: -80.8000}
		assert.InDelta(t, 270, BearingDegrees(origin, west), 0.5)
	})

	t.Run("always in [0, 360)", func(t *testing.T) {
		points := []Geo{
			{Lat: 10, Lng: 10}, {Lat: -10, Lng: 10}, {Lat: 10, Lng: -10},
			{Lat: -10, Lng: -10}, {Lat: 80, Lng: 170}, {Lat: -80, Lng: -170},
		}
		origin := Geo{Lat: 0, Lng: 0}
		for _, p := range points {
			b := BearingDegrees(origin, p)
			assert.GreaterOrEqual(t, b, 0.0)
			assert.Less(t, b, 360.0)
		}
	})
}

func TestDestinationPoint(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		origin := Geo{Lat: 41.8651, Lng: -80.7898}
		dest := DestinationPoint(origin, 500, 45)

		require.InDelta(t, 500, DistanceMeters(origin, dest), 0.01)
		assert.InDelta(t, 45, BearingDegrees(origin, dest), 0.1)
	})

	t.Run("zero distance is the origin", func(t *testing.T) {
		origin := Geo{Lat: 41.8651, Lng: -80.7898}
		dest := DestinationPoint(origin, 0, 123)
		assert.InDelta(t, origin.Lat, dest.Lat, 1e-9)
		assert.InDelta(t, origin.Lng, dest.Lng, 1e-9)
	})
}
