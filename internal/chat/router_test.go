package chat

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePeers records deliveries and can be told to fail for specific
// connections.
type fakePeers struct {
	mu        sync.Mutex
	delivered map[string][][]byte
	failing   map[string]bool
}

func newFakePeers() *fakePeers {
	return &fakePeers{
		delivered: make(map[string][][]byte),
		failing:   make(map[string]bool),
	}
}

func (p *fakePeers) Deliver(connID string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[connID] {
		return errors.New("connection gone")
	}
	p.delivered[connID] = append(p.delivered[connID], payload)
	return nil
}

func (p *fakePeers) payloads(connID string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered[connID]
}

func TestBroadcastExcludesSender(t *testing.T) {
	registry := NewRegistry()
	peers := newFakePeers()
	router := NewRouter(registry, peers, zap.NewNop())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, registry.Register(id))
		require.NoError(t, registry.Join(id, 42))
	}

	n := router.Broadcast(42, []byte("hi"), "a")

	assert.Equal(t, 2, n)
	assert.Empty(t, peers.payloads("a"))
	assert.Len(t, peers.payloads("b"), 1)
	assert.Len(t, peers.payloads("c"), 1)
}

func TestBroadcastSoftFailure(t *testing.T) {
	registry := NewRegistry()
	peers := newFakePeers()
	peers.failing["b"] = true
	router := NewRouter(registry, peers, zap.NewNop())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, registry.Register(id))
		require.NoError(t, registry.Join(id, 7))
	}

	// One dead recipient must not stop delivery to the rest.
	n := router.Broadcast(7, []byte("payload"))

	assert.Equal(t, 2, n)
	assert.Len(t, peers.payloads("a"), 1)
	assert.Empty(t, peers.payloads("b"))
	assert.Len(t, peers.payloads("c"), 1)
}

func TestBroadcastEmptyRoom(t *testing.T) {
	registry := NewRegistry()
	router := NewRouter(registry, newFakePeers(), zap.NewNop())

	assert.Equal(t, 0, router.Broadcast(1234, []byte("nobody home")))
}
