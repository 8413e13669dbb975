package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func communityReport(id string, lat, lng float64, ts time.Time) Report {
	return Report{
		ID:        id,
		Lat:       lat,
		Lng:       lng,
		Type:      OutageOut,
		Timestamp: ts,
		LightID:   MakeLightID(lat, lng),
	}
}

func TestMakeLightID(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     string
	}{
		{"basic", 41.865100, -80.789800, "SL7898086510"},
		{"sign is dropped", -41.865100, 80.789800, "SL7898086510"},
		{"zero padded fraction", 41.900000, -80.100000, "SL1000090000"},
		{"rounds to five digits", 41.8651234, -80.7898456, "SL7898586512"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MakeLightID(tc.lat, tc.lng))
		})
	}
}

func TestClusterReports(t *testing.T) {
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	t.Run("nearby reports share a cluster", func(t *testing.T) {
		a := communityReport("r-a", 41.865100, -80.789800, base)
		b := communityReport("r-b", 41.865101, -80.789799, base.Add(time.Minute))

		clusters := ClusterReports([]Report{a, b}, nil)
		require.Len(t, clusters, 1)
		assert.ElementsMatch(t, []string{"r-a", "r-b"}, clusters[0].ReportIDs)
	})

	t.Run("distant report opens its own cluster", func(t *testing.T) {
		a := communityReport("r-a", 41.865100, -80.789800, base)
		c := communityReport("r-c", 41.870000, -80.789800, base.Add(time.Minute))

		clusters := ClusterReports([]Report{a, c}, nil)
		require.Len(t, clusters, 2)
	})

	t.Run("official reports are excluded", func(t *testing.T) {
		official := map[string]OfficialLight{
			"light-1": {ID: "light-1", Lat: 41.8651, Lng: -80.7898},
		}
		r := communityReport("r-a", 41.865100, -80.789800, base)
		r.LightID = "light-1"

		clusters := ClusterReports([]Report{r}, official)
		assert.Empty(t, clusters)
	})

	t.Run("centroid is the mean of member coordinates", func(t *testing.T) {
		a := communityReport("r-a", 41.865100, -80.789800, base)
		b := communityReport("r-b", 41.865200, -80.789800, base.Add(time.Minute))

		clusters := ClusterReports([]Report{a, b}, nil)
		require.Len(t, clusters, 1)
		assert.InDelta(t, 41.865150, clusters[0].Centroid.Lat, 1e-9)
		assert.InDelta(t, -80.789800, clusters[0].Centroid.Lng, 1e-9)
	})

	t.Run("same input yields same clusters", func(t *testing.T) {
		reports := []Report{
			communityReport("r-1", 41.865100, -80.789800, base),
			communityReport("r-2", 41.865110, -80.789810, base.Add(time.Minute)),
			communityReport("r-3", 41.870000, -80.789800, base.Add(2*time.Minute)),
			communityReport("r-4", 41.870005, -80.789805, base.Add(3*time.Minute)),
		}
		first := ClusterReports(reports, nil)
		second := ClusterReports(reports, nil)
		assert.Equal(t, first, second)
	})

	t.Run("plurality light id with first-seen tie break", func(t *testing.T) {
		a := communityReport("r-a", 41.865100, -80.789800, base)
		b := communityReport("r-b", 41.865150, -80.789850, base.Add(time.Minute))
		require.NotEqual(t, a.LightID, b.LightID)

		clusters := ClusterReports([]Report{a, b}, nil)
		require.Len(t, clusters, 1)
		assert.Equal(t, a.LightID, clusters[0].LightID)

		c := communityReport("r-c", 41.865150, -80.789850, base.Add(2*time.Minute))
		clusters = ClusterReports([]Report{a, b, c}, nil)
		require.Len(t, clusters, 1)
		assert.Equal(t, b.LightID, clusters[0].LightID)
	})
}

func TestMemberLightIDs(t *testing.T) {
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)
	a := communityReport("r-a", 41.865100, -80.789800, base)
	b := communityReport("r-b", 41.865150, -80.789850, base.Add(time.Minute))
	c := communityReport("r-c", 41.865150, -80.789850, base.Add(2*time.Minute))
	reports := []Report{a, b, c}

	clusters := ClusterReports(reports, nil)
	require.Len(t, clusters, 1)

	ids := MemberLightIDs(reports, clusters[0])
	assert.Equal(t, []string{a.LightID, b.LightID}, ids)
}
