package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the push feed.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Collection names a row collection carried by the push feed.
type Collection string

const (
	CollectionReports    Collection = "reports"
	CollectionLights     Collection = "lights"
	CollectionActions    Collection = "actions"
	CollectionFixedCache Collection = "fixed_cache"
)

// FeedOp is the kind of change a feed event carries.
type FeedOp string

const (
	OpInsert FeedOp = "insert"
	OpUpdate FeedOp = "update"
	OpDelete FeedOp = "delete"
)

// FixedEntry is one fixed-cache row: the last-fixed timestamp for a light.
type FixedEntry struct {
	LightID string    `json:"light_id"`
	FixedAt time.Time `json:"fixed_at"`
}

// FeedEvent is one decoded push-feed notification. Exactly one of the row
// pointers is set, matching Collection. Delivery order across collections is
// not guaranteed; consumers must tolerate an action arriving before or after
// the reports it affects.
type FeedEvent struct {
	Collection Collection `json:"collection"`
	Op         FeedOp     `json:"op"`

	Report *Report        `json:"report,omitempty"`
	Light  *OfficialLight `json:"light,omitempty"`
	Action *LightAction   `json:"action,omitempty"`
	Fixed  *FixedEntry    `json:"fixed,omitempty"`
}

// ParseFeedEvent deserializes a RawEvent's value into a FeedEvent and
// validates the carried row at the ingestion boundary, so untyped rows never
// reach the derivation functions.
func ParseFeedEvent(raw RawEvent) (FeedEvent, error) {
	var ev FeedEvent
	if err := json.Unmarshal(raw.Value, &ev); err != nil {
		return FeedEvent{}, fmt.Errorf("parse feed event: %w", err)
	}

	switch ev.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return FeedEvent{}, fmt.Errorf("parse feed event: unknown op %q", ev.Op)
	}

	switch ev.Collection {
	case CollectionReports:
		if ev.Report == nil {
			return FeedEvent{}, fmt.Errorf("parse feed event: reports event without report row")
		}
		ev.Report.Type = NormalizeOutageType(string(ev.Report.Type))
		if ev.Op != OpDelete {
			if err := ValidateReport(*ev.Report); err != nil {
				return FeedEvent{}, fmt.Errorf("parse feed event: %w", err)
			}
		}
	case CollectionLights:
		if ev.Light == nil {
			return FeedEvent{}, fmt.Errorf("parse feed event: lights event without light row")
		}
		if ev.Light.ID == "" {
			return FeedEvent{}, fmt.Errorf("parse feed event: light row without id")
		}
	case CollectionActions:
		if ev.Action == nil {
			return FeedEvent{}, fmt.Errorf("parse feed event: actions event without action row")
		}
		if err := ValidateAction(*ev.Action); err != nil {
			return FeedEvent{}, fmt.Errorf("parse feed event: %w", err)
		}
	case CollectionFixedCache:
		if ev.Fixed == nil || ev.Fixed.LightID == "" {
			return FeedEvent{}, fmt.Errorf("parse feed event: fixed_cache event without light id")
		}
	default:
		return FeedEvent{}, fmt.Errorf("parse feed event: unknown collection %q", ev.Collection)
	}

	return ev, nil
}
