package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindEntity  EntityKind = "entity"
	EntityKindAvatar  EntityKind = "avatar"
	EntityKindWorld   EntityKind = "world"
)

// Event is the unit handed to the router. Payload carries a typed,
// category-specific struct; Extra carries ad-hoc fields.
type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

const (
	CategoryPhysics = "physics"
	CategoryNetwork = "network"
	CategorySystem  = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

// NopPublisher drops every event. Components treat a nil publisher the same
// way, but injecting this keeps call sites branch-free.
func NopPublisher() Publisher {
	return PublisherFunc(func(context.Context, Event) {})
}
