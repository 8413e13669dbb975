package domain

import (
	"fmt"
	"math"
	"strings"
)

// GroupRadiusMeters is the attach radius for community report clustering.
const GroupRadiusMeters = 25.0

// lightIDPrefix prefixes every coordinate-derived light code.
const lightIDPrefix = "SL"

// MakeLightID derives a deterministic human-readable light code from
// coordinates: the five fractional decimal digits of |lng| then |lat|,
// zero-padded, behind a fixed prefix. Used both as the fallback identity for
// ungrouped coordinates and as an official light's short display code.
func MakeLightID(lat, lng float64) string {
	return lightIDPrefix + fractionalDigits(lng) + fractionalDigits(lat)
}

func fractionalDigits(v float64) string {
	s := fmt.Sprintf("%.5f", math.Abs(v))
	_, frac, _ := strings.Cut(s, ".")
	return frac
}

// ClusterReports groups community reports into synthetic lights. Reports
// whose LightID appears in the official directory are excluded; they need no
// geospatial work.
//
// The algorithm is single-linkage sequential clustering: walk reports in the
// given order, attach each to the first existing cluster whose running-mean
// centroid is within GroupRadiusMeters, otherwise open a new cluster. The
// result depends on input order. That is a deliberate simplicity/cost
// tradeoff the rest of the system relies on; callers get determinism by
// passing reports in canonical store order.
func ClusterReports(reports []Report, officialIDs map[string]OfficialLight) []CommunityLight {
	var clusters []*communityCluster

	for _, r := range reports {
		if _, ok := officialIDs[r.LightID]; ok {
			continue
		}

		attached := false
		for _, c := range clusters {
			if DistanceMeters(c.centroid, r.Point()) <= GroupRadiusMeters {
				c.attach(r)
				attached = true
				break
			}
		}
		if !attached {
			clusters = append(clusters, &communityCluster{
				centroid: r.Point(),
				members:  []Report{r},
			})
		}
	}

	out := make([]CommunityLight, len(clusters))
	for i, c := range clusters {
		out[i] = c.finish()
	}
	return out
}

type communityCluster struct {
	centroid Geo
	members  []Report
}

// attach adds a report and updates the centroid as a running mean, so the
// centroid is always the arithmetic mean of all member coordinates.
func (c *communityCluster) attach(r Report) {
	c.members = append(c.members, r)
	n := float64(len(c.members))
	c.centroid = Geo{
		Lat: (c.centroid.Lat*(n-1) + r.Lat) / n,
		Lng: (c.centroid.Lng*(n-1) + r.Lng) / n,
	}
}

// finish freezes the cluster into its exported form. The cluster light id is
// the plurality light-id string among members; ties go to the id seen first
// in the counting pass.
func (c *communityCluster) finish() CommunityLight {
	counts := make(map[string]int, len(c.members))
	var order []string
	for _, m := range c.members {
		if _, seen := counts[m.LightID]; !seen {
			order = append(order, m.LightID)
		}
		counts[m.LightID]++
	}

	best := ""
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best = id
			bestCount = counts[id]
		}
	}

	ids := make([]string, len(c.members))
	for i, m := range c.members {
		ids[i] = m.ID
	}

	return CommunityLight{
		Centroid:  c.centroid,
		ReportIDs: ids,
		LightID:   best,
	}
}

// MemberLightIDs returns the distinct raw light-id strings carried by the
// cluster members, in first-seen order. Cluster-wide fixes are replicated
// upstream as one action row per member id, so lifecycle folding needs the
// whole set.
func MemberLightIDs(reports []Report, c CommunityLight) []string {
	member := make(map[string]bool, len(c.ReportIDs))
	for _, id := range c.ReportIDs {
		member[id] = true
	}

	seen := make(map[string]bool)
	var ids []string
	for _, r := range reports {
		if member[r.ID] && !seen[r.LightID] {
			seen[r.LightID] = true
			ids = append(ids, r.LightID)
		}
	}
	return ids
}
