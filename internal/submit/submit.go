package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumenmap/lightwatch/internal/domain"
	"github.com/lumenmap/lightwatch/internal/observability"
)

// ErrContactCancelled is returned when the contact-capture collaborator was
// invoked and the user dismissed it.
var ErrContactCancelled = errors.New("contact capture cancelled")

// GuestInfo is the contact information of a signed-out reporter.
type GuestInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// ContactFunc asks an external collaborator for guest contact details when
// identity resolution fails. It returns ErrContactCancelled when the user
// backs out. Injected explicitly rather than reached through any ambient
// global state.
type ContactFunc func(ctx context.Context) (GuestInfo, error)

// ReportStore inserts report rows into the backing store. The returned row
// is the server-confirmed one; a zero-ID row means the store accepted the
// insert but could not return the representation.
type ReportStore interface {
	InsertReport(ctx context.Context, r domain.Report) (domain.Report, error)
}

// EngineState is the slice of engine behavior the pipeline needs.
// Implemented by engine.Engine.
type EngineState interface {
	CanReport(lightID string, identity domain.IdentityKey) bool
	CycleBoundary(lightID string) time.Time
	AddReport(r domain.Report)
	RemoveReport(id string)
	ReplaceReport(tempID string, r domain.Report)
}

// typeVariants lists the store enum spellings tried per outage type, primary
// first. Older deployments renamed the pole variant twice, so inserts fall
// back across the historical synonyms before surfacing a constraint error.
var typeVariants = map[domain.OutageType][]string{
	domain.OutageDownedPole: {"downed_pole", "pole_down", "downed-pole"},
}

func variants(t domain.OutageType) []string {
	if v, ok := typeVariants[t]; ok {
		return v
	}
	return []string{string(t)}
}

// Draft is a report as entered by the user, before validation and identity
// resolution.
type Draft struct {
	Lat     float64           `json:"lat"`
	Lng     float64           `json:"lng"`
	Type    domain.OutageType `json:"type"`
	Note    string            `json:"note,omitempty"`
	LightID string            `json:"light_id,omitempty"`

	UserID string     `json:"user_id,omitempty"`
	Guest  *GuestInfo `json:"guest,omitempty"`
}

// BulkResult aggregates a best-effort bulk submission. The batch is never
// atomic; each light succeeds or fails on its own.
type BulkResult struct {
	Submitted int `json:"submitted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Pipeline validates, gates, and inserts report submissions.
type Pipeline struct {
	store          ReportStore
	state          EngineState
	requestContact ContactFunc
	anonCooldowns  *cooldownCache
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// New creates a submission pipeline. requestContact may be nil, in which
// case a submission without resolvable identity fails with
// domain.ErrIdentityMissing instead of pausing for contact capture.
func New(store ReportStore, state EngineState, requestContact ContactFunc, anonCacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		store:          store,
		state:          state,
		requestContact: requestContact,
		anonCooldowns:  newCooldownCache(anonCacheSize),
		logger:         logger,
		metrics:        metrics,
	}
}

// Submit runs one validated single-report submission: validate, resolve
// identity (pausing for contact capture when necessary), re-check the
// cooldown guard, insert with enum-variant fallback, then settle the
// optimistic local row.
func (p *Pipeline) Submit(ctx context.Context, d Draft) (domain.Report, error) {
	if err := p.validate(&d); err != nil {
		p.metrics.Submissions.WithLabelValues("validation").Inc()
		return domain.Report{}, err
	}

	identity, guest, err := p.resolveIdentity(ctx, d)
	if err != nil {
		p.metrics.Submissions.WithLabelValues("contact").Inc()
		return domain.Report{}, err
	}
	if guest != nil {
		d.Guest = guest
	}
	anonymous := d.UserID == ""

	if !p.state.CanReport(d.LightID, identity) {
		p.metrics.Submissions.WithLabelValues("cooldown").Inc()
		return domain.Report{}, domain.ErrCooldownDenied
	}
	if anonymous && p.anonCooldowns.recent(d.LightID, p.state.CycleBoundary(d.LightID)) {
		p.metrics.Submissions.WithLabelValues("cooldown").Inc()
		return domain.Report{}, domain.ErrCooldownDenied
	}

	report := p.buildReport(d)
	pending := newPendingWrite(p.state, report)

	stored, err := p.insertWithFallback(ctx, report)
	if err != nil {
		pending.rollback()
		switch {
		case isConstraint(err):
			p.metrics.Submissions.WithLabelValues("constraint").Inc()
		default:
			p.metrics.Submissions.WithLabelValues("unavailable").Inc()
		}
		return domain.Report{}, err
	}

	// Graceful degradation: a store that cannot return the inserted row
	// leaves the locally-built one authoritative until the feed catches up.
	if stored.ID == "" {
		stored = report
	}
	stored.Type = domain.NormalizeOutageType(string(stored.Type))
	pending.confirm(stored)

	if anonymous {
		p.anonCooldowns.record(d.LightID, stored.Timestamp)
	}

	p.metrics.Submissions.WithLabelValues("accepted").Inc()
	p.logger.Info("report submitted",
		"report_id", stored.ID, "light_id", stored.LightID, "type", stored.Type)
	return stored, nil
}

// SubmitBulk applies the same per-light gating independently for each
// selected light id, sequentially, and continues past individual failures.
func (p *Pipeline) SubmitBulk(ctx context.Context, base Draft, lightIDs []string) BulkResult {
	var res BulkResult
	for _, id := range lightIDs {
		d := base
		d.LightID = id

		_, err := p.Submit(ctx, d)
		switch {
		case err == nil:
			res.Submitted++
		case errors.Is(err, domain.ErrCooldownDenied):
			res.Skipped++
		default:
			// Per-light error attribution; the batch keeps going.
			p.logger.Warn("bulk item failed", "light_id", id, "error", err)
			res.Failed++
		}
	}
	return res
}

func (p *Pipeline) validate(d *Draft) error {
	if !domain.FiniteCoords(d.Lat, d.Lng) {
		return &domain.ValidationError{Field: "lat/lng", Reason: "coordinates must be finite"}
	}
	if !d.Type.Valid() {
		return &domain.ValidationError{Field: "type", Reason: "unknown outage type " + string(d.Type)}
	}
	if d.Type == domain.OutageOther && d.Note == "" {
		return &domain.ValidationError{Field: "note", Reason: "required for type \"other\""}
	}
	// An ungrouped coordinate gets its deterministic fallback identity here,
	// so no empty light id ever reaches the resolver or the store.
	if d.LightID == "" {
		d.LightID = domain.MakeLightID(d.Lat, d.Lng)
	}
	return nil
}

// resolveIdentity derives the reporter identity, invoking the
// contact-capture collaborator once when no usable signal exists.
func (p *Pipeline) resolveIdentity(ctx context.Context, d Draft) (domain.IdentityKey, *GuestInfo, error) {
	identity := draftIdentity(d)
	if identity != domain.IdentityNone {
		return identity, nil, nil
	}

	if p.requestContact == nil {
		return domain.IdentityNone, nil, domain.ErrIdentityMissing
	}

	guest, err := p.requestContact(ctx)
	if err != nil {
		if errors.Is(err, ErrContactCancelled) {
			return domain.IdentityNone, nil, err
		}
		return domain.IdentityNone, nil, fmt.Errorf("contact capture: %w", err)
	}

	identity = domain.ResolveIdentity("", guest.Name, guest.Phone, guest.Email)
	if identity == domain.IdentityNone {
		return domain.IdentityNone, nil, domain.ErrIdentityMissing
	}
	return identity, &guest, nil
}

func draftIdentity(d Draft) domain.IdentityKey {
	var name, phone, email string
	if d.Guest != nil {
		name, phone, email = d.Guest.Name, d.Guest.Phone, d.Guest.Email
	}
	return domain.ResolveIdentity(d.UserID, name, phone, email)
}

func (p *Pipeline) buildReport(d Draft) domain.Report {
	r := domain.Report{
		ID:             "pending-" + uuid.NewString(),
		Lat:            d.Lat,
		Lng:            d.Lng,
		Type:           d.Type,
		Note:           d.Note,
		Timestamp:      domain.Now(),
		LightID:        d.LightID,
		ReporterUserID: d.UserID,
	}
	if d.Guest != nil {
		r.ReporterName = d.Guest.Name
		r.ReporterPhone = d.Guest.Phone
		r.ReporterEmail = d.Guest.Email
	}
	return r
}

// insertWithFallback tries the primary enum spelling and retries across
// known historical synonyms on a constraint rejection. Only after every
// variant is exhausted does the constraint error surface.
func (p *Pipeline) insertWithFallback(ctx context.Context, r domain.Report) (domain.Report, error) {
	var lastErr error
	for i, variant := range variants(r.Type) {
		attempt := r
		attempt.ID = ""
		attempt.Type = domain.OutageType(variant)

		stored, err := p.store.InsertReport(ctx, attempt)
		if err == nil {
			return stored, nil
		}
		if !isConstraint(err) {
			return domain.Report{}, err
		}

		lastErr = err
		if i+1 < len(variants(r.Type)) {
			p.metrics.EnumFallbacks.Inc()
			p.logger.Warn("enum variant rejected, retrying synonym",
				"light_id", r.LightID, "rejected", variant)
		}
	}
	return domain.Report{}, lastErr
}

func isConstraint(err error) bool {
	var ce *domain.ConstraintError
	return errors.As(err, &ce)
}
