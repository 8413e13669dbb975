package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumenmap/lightwatch/internal/domain"
	"github.com/lumenmap/lightwatch/internal/observability"
)

// Engine holds the in-memory row collections and derives light status from
// them. It has no internal goroutines; it is invoked synchronously from the
// push-feed loop, periodic bulk loads, and HTTP reads, so access is guarded
// by one RWMutex.
//
// Every derivation is a pure function recomputed from the current
// collections on each read, never cached incrementally. Output is always a
// function of current input, which rules out stale-derived-state bugs at the
// cost of recomputation.
type Engine struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
	lights  map[string]domain.OfficialLight
	actions map[string]domain.LightAction
	fixed   map[string]time.Time

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates an empty Engine.
func New(logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		reports: make(map[string]domain.Report),
		lights:  make(map[string]domain.OfficialLight),
		actions: make(map[string]domain.LightAction),
		fixed:   make(map[string]time.Time),
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the engine has seen a snapshot or at least
// one feed event.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not loaded any rows yet")
	}
	return nil
}

// LoadSnapshot replaces every collection wholesale from a periodic bulk load.
func (e *Engine) LoadSnapshot(reports []domain.Report, lights []domain.OfficialLight, actions []domain.LightAction, fixed map[string]time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports = make(map[string]domain.Report, len(reports))
	for _, r := range reports {
		e.reports[r.ID] = r
	}
	e.lights = make(map[string]domain.OfficialLight, len(lights))
	for _, l := range lights {
		e.lights[l.ID] = l
	}
	e.actions = make(map[string]domain.LightAction, len(actions))
	for _, a := range actions {
		e.actions[actionKey(a)] = a
	}
	e.fixed = make(map[string]time.Time, len(fixed))
	for id, ts := range fixed {
		e.fixed[id] = ts
	}

	e.ready.Store(true)
	e.logger.Info("snapshot loaded",
		"reports", len(reports), "lights", len(lights), "actions", len(actions), "fixed", len(fixed))
}

// ApplyEvent applies one push-feed notification. Every mutation is
// idempotent under replay: upserting a row the engine already holds
// overwrites it in place, and deleting an absent row is a no-op, never an
// error. The feed can race with local optimistic writes, so this must hold
// unconditionally.
func (e *Engine) ApplyEvent(ev domain.FeedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Collection {
	case domain.CollectionReports:
		if ev.Op == domain.OpDelete {
			delete(e.reports, ev.Report.ID)
		} else {
			e.reports[ev.Report.ID] = *ev.Report
		}
	case domain.CollectionLights:
		if ev.Op == domain.OpDelete {
			delete(e.lights, ev.Light.ID)
		} else {
			e.lights[ev.Light.ID] = *ev.Light
		}
	case domain.CollectionActions:
		// Append-only log; delete events are ignored rather than rejected.
		if ev.Op != domain.OpDelete {
			e.actions[actionKey(*ev.Action)] = *ev.Action
		}
	case domain.CollectionFixedCache:
		if ev.Op == domain.OpDelete {
			delete(e.fixed, ev.Fixed.LightID)
		} else {
			e.fixed[ev.Fixed.LightID] = ev.Fixed.FixedAt
		}
	default:
		return fmt.Errorf("apply event: unknown collection %q", ev.Collection)
	}

	e.ready.Store(true)
	return nil
}

// AddReport inserts a locally-created report (an optimistic write from the
// submission pipeline). Idempotent like any other upsert.
func (e *Engine) AddReport(r domain.Report) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports[r.ID] = r
}

// RemoveReport rolls back an optimistic write. Removing an id the engine
// does not hold is a no-op.
func (e *Engine) RemoveReport(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.reports, id)
}

// ReplaceReport swaps an optimistic temp row for the server-confirmed one.
func (e *Engine) ReplaceReport(tempID string, r domain.Report) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.reports, tempID)
	e.reports[r.ID] = r
}

// CycleBoundary returns the current fix/reopen boundary for one raw light id.
func (e *Engine) CycleBoundary(lightID string) time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.CycleBoundary(e.actionsFor(lightID), e.fixed[lightID])
}

// CanReport consults the cooldown guard against the current state.
func (e *Engine) CanReport(lightID string, identity domain.IdentityKey) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	boundary := domain.CycleBoundary(e.actionsFor(lightID), e.fixed[lightID])
	return domain.CanReport(lightID, identity, e.sortedReports(), boundary)
}

// DeriveStatus recomputes the status of every known light from the current
// collections: clustering, lifecycle fold, then aggregation.
func (e *Engine) DeriveStatus() domain.StatusMap {
	start := time.Now()

	e.mu.RLock()
	reports := e.sortedReports()
	lights := make(map[string]domain.OfficialLight, len(e.lights))
	for id, l := range e.lights {
		lights[id] = l
	}
	actions := e.sortedActions()
	fixed := make(map[string]time.Time, len(e.fixed))
	for id, ts := range e.fixed {
		fixed[id] = ts
	}
	e.mu.RUnlock()

	out := make(domain.StatusMap, len(lights))

	for id, l := range lights {
		var members []domain.Report
		for _, r := range reports {
			if r.LightID == id {
				members = append(members, r)
			}
		}
		cycle := domain.TrackCycle(members, actionsForID(actions, id), fixed[id])
		out[id] = domain.AggregateStatus(id, l.HumanID, true, l.Point(), cycle)
	}

	for _, cluster := range domain.ClusterReports(reports, lights) {
		memberIDs := domain.MemberLightIDs(reports, cluster)
		idSet := make(map[string]bool, len(memberIDs))
		var lastFixed time.Time
		for _, id := range memberIDs {
			idSet[id] = true
			if ts := fixed[id]; ts.After(lastFixed) {
				lastFixed = ts
			}
		}

		inCluster := make(map[string]bool, len(cluster.ReportIDs))
		for _, id := range cluster.ReportIDs {
			inCluster[id] = true
		}
		var members []domain.Report
		for _, r := range reports {
			if inCluster[r.ID] {
				members = append(members, r)
			}
		}
		var clusterActions []domain.LightAction
		for _, a := range actions {
			if idSet[a.LightID] {
				clusterActions = append(clusterActions, a)
			}
		}

		cycle := domain.TrackCycle(members, clusterActions, lastFixed)
		out[cluster.LightID] = domain.AggregateStatus(cluster.LightID, "", false, cluster.Centroid, cycle)
	}

	if e.metrics != nil {
		e.metrics.DeriveDuration.Observe(time.Since(start).Seconds())
	}
	return out
}

// Reports returns the held reports in canonical order.
func (e *Engine) Reports() []domain.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sortedReports()
}

// sortedReports returns reports in canonical store order: ascending
// timestamp, ties by id. Clustering is order-sensitive, so every client must
// walk the same order regardless of feed arrival order.
func (e *Engine) sortedReports() []domain.Report {
	out := make([]domain.Report, 0, len(e.reports))
	for _, r := range e.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) actionsFor(lightID string) []domain.LightAction {
	return actionsForID(e.sortedActions(), lightID)
}

// sortedActions returns the action log in canonical order. Events with equal
// timestamps must fold identically on every client, so ties break on the
// full row key.
func (e *Engine) sortedActions() []domain.LightAction {
	out := make([]domain.LightAction, 0, len(e.actions))
	for _, a := range e.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return actionKey(out[i]) < actionKey(out[j])
	})
	return out
}

func actionsForID(actions []domain.LightAction, lightID string) []domain.LightAction {
	var out []domain.LightAction
	for _, a := range actions {
		if a.LightID == lightID {
			out = append(out, a)
		}
	}
	return out
}

// actionKey dedupes action rows under feed replay. The log is append-only
// with no server id, so identity is the full row content.
func actionKey(a domain.LightAction) string {
	return fmt.Sprintf("%s|%s|%d|%s", a.LightID, a.Action, a.Timestamp.UnixNano(), domain.ActionIdentity(a))
}
