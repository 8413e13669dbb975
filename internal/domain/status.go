package domain

// Status is the human-facing lifecycle label of a light.
type Status string

const (
	StatusOperational  Status = "operational"
	StatusReported     Status = "reported"
	StatusLikelyOut    Status = "likely_out"
	StatusConfirmedOut Status = "confirmed_out"

	// StatusSelfReported is the muted viewer-relative variant shown to a
	// non-administrator who is the sole reporter of a light's only open-cycle
	// report, so one tap never reads as widely confirmed.
	StatusSelfReported Status = "self_reported"
)

// Color returns the marker color consumed by the rendering layer.
func (s Status) Color() string {
	switch s {
	case StatusReported:
		return "yellow"
	case StatusLikelyOut:
		return "orange"
	case StatusConfirmedOut:
		return "red"
	case StatusSelfReported:
		return "gray"
	default:
		return "green"
	}
}

// SeverityTier maps an open-cycle outage report count to a status. Official
// lights use the four-tier scale, community lights a coarser three-tier one.
// The two scales are intentionally different and must not be unified.
func SeverityTier(openCount int, official bool) Status {
	if openCount <= 0 {
		return StatusOperational
	}
	if official {
		switch {
		case openCount <= 4:
			return StatusReported
		case openCount <= 6:
			return StatusLikelyOut
		default:
			return StatusConfirmedOut
		}
	}
	switch {
	case openCount == 1:
		return StatusReported
	case openCount <= 3:
		return StatusLikelyOut
	default:
		return StatusConfirmedOut
	}
}

// MajorityType tallies outage-type occurrences in slice order and returns
// the winner. Ties go to the first type encountered, never to the most
// recent one; the tie-break must stay stable for deterministic replays.
// Returns the empty type for an empty slice.
func MajorityType(reports []Report) OutageType {
	counts := make(map[OutageType]int, len(reports))
	var order []OutageType
	for _, r := range reports {
		if _, seen := counts[r.Type]; !seen {
			order = append(order, r.Type)
		}
		counts[r.Type]++
	}

	var best OutageType
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// LightStatus is the derived view of one light consumed by the rendering
// layer.
type LightStatus struct {
	LightID  string `json:"light_id"`
	HumanID  string `json:"human_id,omitempty"`
	Official bool   `json:"official"`
	Location Geo    `json:"location"`

	Status       Status     `json:"status"`
	Color        string     `json:"color"`
	MajorityType OutageType `json:"majority_type,omitempty"`
	OpenReports  int        `json:"open_reports"`

	ResolvedByConsensus bool `json:"resolved_by_consensus,omitempty"`

	// SoleReporter is set when exactly one open-cycle report exists, to
	// support viewer-relative display. Not serialized.
	SoleReporter IdentityKey `json:"-"`
}

// StatusMap holds the derived status of every known light, keyed by light id.
type StatusMap map[string]LightStatus

// AggregateStatus folds one light's cycle state into its status view.
func AggregateStatus(lightID, humanID string, official bool, location Geo, cycle LightCycle) LightStatus {
	st := LightStatus{
		LightID:      lightID,
		HumanID:      humanID,
		Official:     official,
		Location:     location,
		MajorityType: MajorityType(cycle.OpenReports),
		OpenReports:  len(cycle.OpenReports),
	}

	if cycle.ResolvedByConsensus {
		st.Status = StatusOperational
		st.ResolvedByConsensus = true
	} else {
		st.Status = SeverityTier(len(cycle.OpenReports), official)
	}
	st.Color = st.Status.Color()

	if len(cycle.OpenReports) == 1 {
		st.SoleReporter = ReportIdentity(cycle.OpenReports[0])
	}
	return st
}

// ForViewer applies viewer-relative display: a non-administrator viewer who
// is the sole reporter of the only open-cycle report sees the muted
// self-reported indicator instead of the shared tier.
func ForViewer(st LightStatus, viewer IdentityKey, admin bool) LightStatus {
	if admin || viewer == IdentityNone {
		return st
	}
	if st.OpenReports == 1 && st.SoleReporter == viewer {
		st.Status = StatusSelfReported
		st.Color = st.Status.Color()
	}
	return st
}
