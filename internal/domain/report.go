package domain

import (
	"math"
	"time"
)

// OutageType classifies what a reporter observed at a light.
type OutageType string

const (
	OutageOut        OutageType = "out"
	OutageFlickering OutageType = "flickering"
	OutageDayburner  OutageType = "dayburner"
	OutageDownedPole OutageType = "downed_pole"
	OutageWorking    OutageType = "working"
	OutageOther      OutageType = "other"
)

// outageTypeSynonyms maps historical enum spellings, seen in older store
// rows and in constraint-fallback retries, to their canonical type.
var outageTypeSynonyms = map[string]OutageType{
	"pole_down":   OutageDownedPole,
	"downed-pole": OutageDownedPole,
}

// NormalizeOutageType canonicalizes historical synonyms so that majority
// voting never splits one observation across spellings. Unknown values are
// returned unchanged.
func NormalizeOutageType(raw string) OutageType {
	if t, ok := outageTypeSynonyms[raw]; ok {
		return t
	}
	return OutageType(raw)
}

// Valid reports whether t is a known canonical outage type.
func (t OutageType) Valid() bool {
	switch t {
	case OutageOut, OutageFlickering, OutageDayburner, OutageDownedPole, OutageWorking, OutageOther:
		return true
	}
	return false
}

// Quality is the derived good/bad classification of a report.
type Quality string

const (
	QualityGood Quality = "good"
	QualityBad  Quality = "bad"
)

// Quality derives the report quality: working acknowledgments are good,
// every other type is an outage observation.
func (t OutageType) Quality() Quality {
	if t == OutageWorking {
		return QualityGood
	}
	return QualityBad
}

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Report is one immutable outage report row. Created once, never mutated,
// never deleted by this engine.
type Report struct {
	ID        string     `json:"id"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Type      OutageType `json:"type"`
	Note      string     `json:"note,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	LightID   string     `json:"light_id"`

	ReporterUserID string `json:"reporter_user_id,omitempty"`
	ReporterName   string `json:"reporter_name,omitempty"`
	ReporterPhone  string `json:"reporter_phone,omitempty"`
	ReporterEmail  string `json:"reporter_email,omitempty"`
}

// Point returns the report coordinates.
func (r Report) Point() Geo { return Geo{Lat: r.Lat, Lng: r.Lng} }

// IsOutage reports whether this row counts as an outage observation rather
// than a working acknowledgment.
func (r Report) IsOutage() bool { return r.Type.Quality() == QualityBad }

// OfficialLight is an administrator-curated light with a stable server id.
type OfficialLight struct {
	ID      string  `json:"id"`
	HumanID string  `json:"human_id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Point returns the light coordinates.
func (l OfficialLight) Point() Geo { return Geo{Lat: l.Lat, Lng: l.Lng} }

// CommunityLight is a derived cluster of community reports. It is not a
// persisted entity; it is recomputed from scratch whenever the report set
// changes.
type CommunityLight struct {
	Centroid  Geo      `json:"centroid"`
	ReportIDs []string `json:"report_ids"`
	LightID   string   `json:"light_id"` // plurality light-id string among members
}

// ActionKind is an entry kind in the light action log.
type ActionKind string

const (
	ActionFix     ActionKind = "fix"
	ActionReopen  ActionKind = "reopen"
	ActionWorking ActionKind = "working"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionFix, ActionReopen, ActionWorking:
		return true
	}
	return false
}

// LightAction is one append-only action log row. A cluster-wide administrator
// fix is replicated upstream as one row per member light id.
type LightAction struct {
	LightID   string     `json:"light_id"`
	Action    ActionKind `json:"action"`
	Timestamp time.Time  `json:"timestamp"`

	ActorUserID string `json:"actor_user_id,omitempty"`
	ActorName   string `json:"actor_name,omitempty"`
	ActorPhone  string `json:"actor_phone,omitempty"`
	ActorEmail  string `json:"actor_email,omitempty"`
}

// FiniteCoords reports whether both coordinates are finite numbers.
func FiniteCoords(lat, lng float64) bool {
	return !math.IsNaN(lat) && !math.IsInf(lat, 0) && !math.IsNaN(lng) && !math.IsInf(lng, 0)
}

// ValidateReport checks a report row at the ingestion boundary. Derivation
// functions assume rows have passed this check.
func ValidateReport(r Report) error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !FiniteCoords(r.Lat, r.Lng) {
		return &ValidationError{Field: "lat/lng", Reason: "coordinates must be finite"}
	}
	if r.LightID == "" {
		return &ValidationError{Field: "light_id", Reason: "must not be empty"}
	}
	if !r.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown outage type " + string(r.Type)}
	}
	if r.Type == OutageOther && r.Note == "" {
		return &ValidationError{Field: "note", Reason: "required for type \"other\""}
	}
	return nil
}

// ValidateAction checks an action log row at the ingestion boundary.
func ValidateAction(a LightAction) error {
	if a.LightID == "" {
		return &ValidationError{Field: "light_id", Reason: "must not be empty"}
	}
	if !a.Action.Valid() {
		return &ValidationError{Field: "action", Reason: "unknown action " + string(a.Action)}
	}
	return nil
}
