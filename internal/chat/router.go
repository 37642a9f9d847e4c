package chat

import "go.uber.org/zap"

// Peers resolves a connection id to its live transport and hands it a
// payload. Implemented by the websocket hub.
type Peers interface {
	Deliver(connID string, payload []byte) error
}

// Router relays a payload to every current member of a room, minus an
// exclusion set (typically the sender). Delivery is fire and forget: a
// recipient that disconnected mid-broadcast must not stop delivery to
// the rest, and the caller never sees per-recipient failures.
type Router struct {
	registry *Registry
	peers    Peers
	logger   *zap.Logger
}

func NewRouter(registry *Registry, peers Peers, logger *zap.Logger) *Router {
	return &Router{registry: registry, peers: peers, logger: logger}
}

// Broadcast delivers payload to the members of roomID not listed in
// exclude and returns how many recipients accepted it.
func (rt *Router) Broadcast(roomID int64, payload []byte, exclude ...string) int {
	var skip map[string]struct{}
	if len(exclude) > 0 {
		skip = make(map[string]struct{}, len(exclude))
		for _, id := range exclude {
			skip[id] = struct{}{}
		}
	}

	delivered := 0
	for _, connID := range rt.registry.Members(roomID) {
		if _, ok := skip[connID]; ok {
			continue
		}
		if err := rt.peers.Deliver(connID, payload); err != nil {
			rt.logger.Warn("broadcast delivery failed",
				zap.Int64("room", roomID),
				zap.String("conn", connID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
