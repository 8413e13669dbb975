package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outageAt(id string, ts time.Time) Report {
	return Report{ID: id, Lat: 41.8651, Lng: -80.7898, Type: OutageOut, Timestamp: ts, LightID: "light-1"}
}

func workingAt(id string, ts time.Time) Report {
	r := outageAt(id, ts)
	r.Type = OutageWorking
	return r
}

func actionAt(kind ActionKind, ts time.Time) LightAction {
	return LightAction{LightID: "light-1", Action: kind, Timestamp: ts}
}

func TestCycleBoundary(t *testing.T) {
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	t.Run("no history means no boundary", func(t *testing.T) {
		assert.True(t, CycleBoundary(nil, time.Time{}).IsZero())
	})

	t.Run("latest fix wins", func(t *testing.T) {
		actions := []LightAction{
			actionAt(ActionFix, base),
			actionAt(ActionFix, base.Add(2*time.Hour)),
			actionAt(ActionFix, base.Add(time.Hour)),
		}
		assert.Equal(t, base.Add(2*time.Hour), CycleBoundary(actions, time.Time{}))
	})

	t.Run("reopen after fix clears the boundary", func(t *testing.T) {
		actions := []LightAction{
			actionAt(ActionFix, base),
			actionAt(ActionReopen, base.Add(time.Hour)),
		}
		assert.True(t, CycleBoundary(actions, time.Time{}).IsZero())
	})

	t.Run("fix after reopen restores a boundary", func(t *testing.T) {
		actions := []LightAction{
			actionAt(ActionFix, base),
			actionAt(ActionReopen, base.Add(time.Hour)),
			actionAt(ActionFix, base.Add(2*time.Hour)),
		}
		assert.Equal(t, base.Add(2*time.Hour), CycleBoundary(actions, time.Time{}))
	})

	t.Run("replay order does not matter", func(t *testing.T) {
		ordered := []LightAction{
			actionAt(ActionFix, base),
			actionAt(ActionReopen, base.Add(time.Hour)),
			actionAt(ActionFix, base.Add(2*time.Hour)),
		}
		shuffled := []LightAction{ordered[2], ordered[0], ordered[1]}
		assert.Equal(t, CycleBoundary(ordered, time.Time{}), CycleBoundary(shuffled, time.Time{}))
	})

	t.Run("cached fix participates as a fix event", func(t *testing.T) {
		assert.Equal(t, base, CycleBoundary(nil, base))
	})

	t.Run("reopen after the cached fix clears it", func(t *testing.T) {
		actions := []LightAction{actionAt(ActionReopen, base.Add(time.Hour))}
		assert.True(t, CycleBoundary(actions, base).IsZero())
	})
}

func TestTrackCycle(t *testing.T) {
	base := time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)

	t.Run("never fixed counts every outage report", func(t *testing.T) {
		reports := []Report{
			outageAt("r-1", base),
			outageAt("r-2", base.Add(time.Minute)),
		}
		cycle := TrackCycle(reports, nil, time.Time{})
		assert.Len(t, cycle.OpenReports, 2)
		assert.False(t, cycle.ResolvedByConsensus)
	})

	t.Run("reports at or before the boundary are closed", func(t *testing.T) {
		reports := []Report{
			outageAt("r-1", base.Add(-time.Hour)),
			outageAt("r-2", base), // exactly at the boundary, still closed
			outageAt("r-3", base.Add(time.Minute)),
		}
		actions := []LightAction{actionAt(ActionFix, base)}

		cycle := TrackCycle(reports, actions, time.Time{})
		require.Len(t, cycle.OpenReports, 1)
		assert.Equal(t, "r-3", cycle.OpenReports[0].ID)
	})

	t.Run("three working signals resolve by consensus", func(t *testing.T) {
		reports := []Report{
			outageAt("r-1", base),
			workingAt("w-1", base.Add(time.Minute)),
			workingAt("w-2", base.Add(2*time.Minute)),
		}
		actions := []LightAction{actionAt(ActionWorking, base.Add(3*time.Minute))}

		cycle := TrackCycle(reports, actions, time.Time{})
		assert.True(t, cycle.ResolvedByConsensus)
		assert.Equal(t, 3, cycle.WorkingSignals)
	})

	t.Run("interleaved outage resets the streak", func(t *testing.T) {
		reports := []Report{
			workingAt("w-1", base),
			workingAt("w-2", base.Add(time.Minute)),
			outageAt("r-1", base.Add(2*time.Minute)),
			workingAt("w-3", base.Add(3*time.Minute)),
			workingAt("w-4", base.Add(4*time.Minute)),
		}
		cycle := TrackCycle(reports, nil, time.Time{})
		assert.False(t, cycle.ResolvedByConsensus)
		assert.Equal(t, 4, cycle.WorkingSignals)
		assert.Len(t, cycle.OpenReports, 1)
	})

	t.Run("consensus only counts the open cycle", func(t *testing.T) {
		reports := []Report{
			workingAt("w-1", base.Add(-3*time.Minute)),
			workingAt("w-2", base.Add(-2*time.Minute)),
			workingAt("w-3", base.Add(-time.Minute)),
			outageAt("r-1", base.Add(time.Minute)),
		}
		actions := []LightAction{actionAt(ActionFix, base)}

		cycle := TrackCycle(reports, actions, time.Time{})
		assert.False(t, cycle.ResolvedByConsensus)
		assert.Equal(t, 0, cycle.WorkingSignals)
		assert.Len(t, cycle.OpenReports, 1)
	})

	t.Run("fold is order independent", func(t *testing.T) {
		reports := []Report{
			outageAt("r-1", base),
			workingAt("w-1", base.Add(time.Minute)),
			outageAt("r-2", base.Add(2*time.Minute)),
		}
		actions := []LightAction{actionAt(ActionFix, base.Add(-time.Hour))}

		forward := TrackCycle(reports, actions, time.Time{})
		reversed := TrackCycle([]Report{reports[2], reports[1], reports[0]}, actions, time.Time{})
		assert.Equal(t, forward, reversed)
	})
}
