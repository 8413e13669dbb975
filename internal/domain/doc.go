// Package domain models community streetlight outage reports and derives
// per-light status from them.
//
// # Data Source
//
// Rows arrive from an external row store in three collections: outage reports,
// the administrator-curated official light directory, and an append-only light
// action log (fix / reopen / working). A fourth keyed collection, the
// fixed-cache, mirrors the most recent fix timestamp per light id as a fast
// path; when the two diverge the action log wins. The engine never fetches or
// persists rows itself — it consumes what the store and its push feed deliver
// and recomputes every derived view from scratch on each read.
//
// # Light identity
//
// Official lights carry a stable server-assigned id and are authoritative: a
// report whose light id matches the directory needs no geospatial work.
// Everything else is a community report, grouped by single-linkage sequential
// clustering with a 25 m attach radius. Clustering walks reports in canonical
// order (timestamp, then id) and attaches each to the first cluster whose
// running-mean centroid is close enough, otherwise opens a new cluster. This
// is order-sensitive and not true spatial clustering; downstream identity and
// display logic depend on its exact quirks, so it must not be "upgraded".
//
// A cluster's display id is the plurality light-id string among its members,
// ties broken by first-seen order. [MakeLightID] derives a short human code
// from coordinates: a fixed prefix plus the five fractional decimal digits of
// |lng| then |lat|, zero-padded.
//
// # Reporter identity
//
// Reporters are recognized across reports by a normalized identity key with
// fixed precedence:
//
//	uid:<id> > email:<trimmed lowercase> > phone:<digits only> > name:<lowercased trimmed>
//
// The same normalization applies to stored rows, so historical rows compare
// equal to current sessions even when raw casing or phone formatting differed
// at capture time.
//
// # Cycles and lifecycle
//
// A cycle spans from a light being marked fixed (or never having been fixed)
// to its next fix. The cycle boundary is the result of replaying fix/reopen
// actions in timestamp order with the fixed-cache entry injected as a
// synthetic fix: fix sets the boundary, reopen clears it to "never fixed".
// An outage report belongs to the open cycle only if its timestamp is
// strictly after the boundary.
//
// Outage types: out, flickering, dayburner, downed_pole, working, other.
// "working" rows are acknowledgments that the light is fine (quality good);
// all other types are outage reports (quality bad). Three or more consecutive
// working signals since the cycle boundary, with no interleaved outage report
// resetting the streak, mark the light resolved by consensus even without an
// administrator fix.
//
// # Severity tiers
//
// Official lights: 0 open-cycle reports → Operational, 1–4 → Reported,
// 5–6 → Likely Out, ≥7 → Confirmed Out. Community lights use a coarser
// scale: 1 → Reported, 2–3 → Likely Out, ≥4 → Confirmed Out. The two scales
// are intentionally different and must not be unified. The majority outage
// type is a straight tally with ties broken by the first type encountered,
// which keeps the result deterministic under replay.
package domain
