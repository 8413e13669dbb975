package domain

import "time"

// CanReport decides whether identity may file a new report on lightID given
// the report history and the light's current cycle boundary.
//
// An unresolvable identity never denies: forcing contact collection happens
// earlier, in the submission pipeline. Otherwise the identity's most recent
// report on the light must belong to an already-closed cycle, i.e. its
// timestamp must not be after the boundary.
func CanReport(lightID string, identity IdentityKey, history []Report, cycleBoundary time.Time) bool {
	if identity == IdentityNone {
		return true
	}

	var last time.Time
	found := false
	for _, r := range history {
		if r.LightID != lightID || ReportIdentity(r) != identity {
			continue
		}
		found = true
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}

	if !found {
		return true
	}
	return !last.After(cycleBoundary)
}
