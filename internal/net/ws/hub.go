// Package ws fans authoritative edits and collision events out to websocket
// subscribers and ingests avatar poses and entity adds from them.
package ws

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/JulianGro/athena-entity-server/internal/collision"
	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/net/proto"
	"github.com/JulianGro/athena-entity-server/internal/telemetry"
)

const (
	MetricEditsQueued     = "network.edits_queued"
	MetricEditsDropped    = "network.edits_dropped"
	MetricEventsQueued    = "network.collision_events_queued"
	MetricBytesBroadcast  = "network.bytes_broadcast"
	MetricEncodeFailures  = "network.encode_failures"
	MetricSubscribersGone = "network.subscribers_dropped"
)

const defaultQueueSize = 1024

// Hub owns the live subscriber set and the outbound broadcast queue. It
// implements both the edit sink and the collision observer consumed by the
// collision pass: queuing never blocks the simulation.
type Hub struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics

	mu          sync.Mutex
	subscribers map[uint64]*subscriber
	nextID      atomic.Uint64

	queue chan []byte
	stop  chan struct{}
	once  sync.Once
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

type HubConfig struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	QueueSize int
}

func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	hub := &Hub{
		logger:      logger,
		metrics:     metrics,
		subscribers: make(map[uint64]*subscriber),
		queue:       make(chan []byte, queueSize),
		stop:        make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case <-h.stop:
			return
		case data := <-h.queue:
			h.fanOut(data)
		}
	}
}

func (h *Hub) fanOut(data []byte) {
	h.mu.Lock()
	subs := make(map[uint64]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.write(websocket.BinaryMessage, data); err != nil {
			h.logger.Printf("ws: dropping subscriber %d: %v", id, err)
			h.metrics.Add(MetricSubscribersGone, 1)
			h.Unsubscribe(id)
		}
	}
	h.metrics.Add(MetricBytesBroadcast, uint64(len(data)))
}

// Subscribe registers a connection for broadcasts and returns its id.
func (h *Hub) Subscribe(conn *websocket.Conn) uint64 {
	id := h.nextID.Add(1)
	h.mu.Lock()
	h.subscribers[id] = &subscriber{conn: conn}
	h.mu.Unlock()
	return id
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
}

// SubscriberCount reports the live subscriber total.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// send direct to one subscriber, bypassing the broadcast queue.
func (h *Hub) sendTo(id uint64, data []byte) {
	h.mu.Lock()
	sub := h.subscribers[id]
	h.mu.Unlock()
	if sub == nil {
		return
	}
	if err := sub.write(websocket.BinaryMessage, data); err != nil {
		h.logger.Printf("ws: direct send to %d failed: %v", id, err)
	}
}

func (h *Hub) broadcast(data []byte) {
	select {
	case h.queue <- data:
	default:
		h.metrics.Add(MetricEditsDropped, 1)
	}
}

// QueueEditMessage implements the edit sink consumed by the collision pass.
func (h *Hub) QueueEditMessage(id entity.ID, props entity.Properties) {
	msg := proto.EntityEdit{
		Ver:        proto.ProtocolVersion,
		Type:       proto.TypeEntityEdit,
		EntityID:   id.String(),
		Position:   [3]float64{props.Position.X(), props.Position.Y(), props.Position.Z()},
		Velocity:   [3]float64{props.Velocity.X(), props.Velocity.Y(), props.Velocity.Z()},
		LastEdited: props.LastEdited.UnixNano(),
	}
	data, err := proto.Encode(msg)
	if err != nil {
		h.metrics.Add(MetricEncodeFailures, 1)
		h.logger.Printf("ws: encode edit for %s: %v", id, err)
		return
	}
	h.metrics.Add(MetricEditsQueued, 1)
	h.broadcast(data)
}

// EntityCollisionWithEntity implements the collision observer, publishing
// one event per resolved pair.
func (h *Hub) EntityCollisionWithEntity(idA, idB entity.ID, c collision.Collision) {
	msg := proto.CollisionEvent{
		Ver:          proto.ProtocolVersion,
		Type:         proto.TypeCollisionEvent,
		EntityIDA:    idA.String(),
		EntityIDB:    idB.String(),
		Penetration:  [3]float64{c.Penetration.X(), c.Penetration.Y(), c.Penetration.Z()},
		ContactPoint: [3]float64{c.ContactPoint.X(), c.ContactPoint.Y(), c.ContactPoint.Z()},
	}
	data, err := proto.Encode(msg)
	if err != nil {
		h.metrics.Add(MetricEncodeFailures, 1)
		h.logger.Printf("ws: encode collision event: %v", err)
		return
	}
	h.metrics.Add(MetricEventsQueued, 1)
	h.broadcast(data)
}

// Close stops the broadcast loop. Connections are owned by their handlers.
func (h *Hub) Close() {
	h.once.Do(func() { close(h.stop) })
}
