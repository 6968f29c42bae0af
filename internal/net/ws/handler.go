package ws

import (
	nethttp "net/http"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JulianGro/athena-entity-server/internal/avatars"
	"github.com/JulianGro/athena-entity-server/internal/entity"
	"github.com/JulianGro/athena-entity-server/internal/materials"
	"github.com/JulianGro/athena-entity-server/internal/net/proto"
	"github.com/JulianGro/athena-entity-server/internal/telemetry"
	"github.com/JulianGro/athena-entity-server/internal/tree"
)

const (
	MetricPosesApplied  = "network.poses_applied"
	MetricEntitiesAdded = "network.entities_added"
	MetricIntakeErrors  = "network.intake_errors"
)

type HandlerConfig struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// Handler upgrades websocket connections, subscribes them to the hub, and
// routes inbound messages: avatar poses into the registry, entity adds into
// the tree.
type Handler struct {
	hub      *Hub
	tree     *tree.EntityTree
	registry *avatars.Registry
	catalog  *materials.Catalog
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, entityTree *tree.EntityTree, registry *avatars.Registry, catalog *materials.Catalog, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Handler{
		hub:      hub,
		tree:     entityTree,
		registry: registry,
		catalog:  catalog,
		logger:   logger,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("ws: upgrade failed: %v", err)
		return
	}
	subID := h.hub.Subscribe(conn)

	var avatarID uuid.UUID
	var hasAvatar bool
	defer func() {
		h.hub.Unsubscribe(subID)
		if hasAvatar {
			h.registry.Remove(avatarID)
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msgType, err := proto.PeekType(data)
		if err != nil {
			h.metrics.Add(MetricIntakeErrors, 1)
			h.logger.Printf("ws: bad message from subscriber %d: %v", subID, err)
			continue
		}
		switch msgType {
		case proto.TypeAvatarPose:
			if id, ok := h.handlePose(data); ok {
				avatarID = id
				hasAvatar = true
			}
		case proto.TypeEntityAdd:
			h.handleEntityAdd(subID, data)
		default:
			h.metrics.Add(MetricIntakeErrors, 1)
		}
	}
}

func (h *Handler) handlePose(data []byte) (uuid.UUID, bool) {
	var msg proto.AvatarPose
	if err := proto.Decode(data, &msg); err != nil {
		h.metrics.Add(MetricIntakeErrors, 1)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(msg.AvatarID)
	if err != nil {
		h.metrics.Add(MetricIntakeErrors, 1)
		return uuid.UUID{}, false
	}
	if !h.registry.UpsertPose(id,
		mgl64.Vec3{msg.Position[0], msg.Position[1], msg.Position[2]},
		msg.BoundingRadius,
		mgl64.Vec3{msg.Velocity[0], msg.Velocity[1], msg.Velocity[2]},
	) {
		h.metrics.Add(MetricIntakeErrors, 1)
		return uuid.UUID{}, false
	}
	h.metrics.Add(MetricPosesApplied, 1)
	return id, true
}

func (h *Handler) handleEntityAdd(subID uint64, data []byte) {
	var msg proto.EntityAdd
	if err := proto.Decode(data, &msg); err != nil {
		h.metrics.Add(MetricIntakeErrors, 1)
		return
	}

	item, err := entity.New(entity.Spec{
		ID:                  entity.NewID(),
		Position:            mgl64.Vec3{msg.Position[0], msg.Position[1], msg.Position[2]},
		Velocity:            mgl64.Vec3{msg.Velocity[0], msg.Velocity[1], msg.Velocity[2]},
		Dimensions:          mgl64.Vec3{msg.Dimensions[0], msg.Dimensions[1], msg.Dimensions[2]},
		Density:             h.catalog.DensityFor(msg.Material),
		Material:            msg.Material,
		IgnoreForCollisions: msg.IgnoreForCollisions,
		CollisionsWillMove:  msg.CollisionsWillMove,
	})
	if err != nil {
		h.metrics.Add(MetricIntakeErrors, 1)
		h.logger.Printf("ws: rejecting entity add: %v", err)
		return
	}

	h.tree.Lock()
	err = h.tree.AddEntity(item)
	h.tree.Unlock()
	if err != nil {
		h.metrics.Add(MetricIntakeErrors, 1)
		h.logger.Printf("ws: add entity: %v", err)
		return
	}
	h.metrics.Add(MetricEntitiesAdded, 1)

	ack := proto.EntityAck{
		Ver:           proto.ProtocolVersion,
		Type:          proto.TypeEntityAck,
		ProvisionalID: msg.EntityID,
		EntityID:      item.ID().String(),
	}
	ackData, err := proto.Encode(ack)
	if err != nil {
		h.metrics.Add(MetricEncodeFailures, 1)
		return
	}
	h.hub.sendTo(subID, ackData)
}
