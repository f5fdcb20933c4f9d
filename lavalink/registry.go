package lavalink

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	lava "github.com/disgoorg/disgolink/v3/lavalink"
)

// ErrNoNodes is returned when a search is attempted with no registered nodes.
var ErrNoNodes = errors.New("lavalink: no nodes registered")

// Registry tracks the registered Lavalink nodes and picks one per search.
// Selection is a uniform random pick; nodes carry no health state.
type Registry struct {
	mu    sync.RWMutex
	nodes []*Node
}

func NewRegistry() *Registry {
	return &Registry{}
}

// AddNode registers a node, replacing any previous node with the same name.
func (r *Registry) AddNode(config NodeConfig) *Node {
	node := NewNode(config)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.nodes {
		if existing.Name() == config.Name {
			r.nodes[i] = node
			return node
		}
	}
	r.nodes = append(r.nodes, node)
	return node
}

// RemoveNode unregisters the node with the given name. It reports whether a
// node was removed.
func (r *Registry) RemoveNode(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, node := range r.nodes {
		if node.Name() == name {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Nodes returns a snapshot of the registered nodes.
func (r *Registry) Nodes() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Node returns a randomly selected registered node.
func (r *Registry) Node() (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.nodes) == 0 {
		return nil, ErrNoNodes
	}
	return r.nodes[rand.Intn(len(r.nodes))], nil
}

// Search runs the query against a randomly selected node. It satisfies the
// resolver's search backend interface.
func (r *Registry) Search(ctx context.Context, query string) (*lava.Track, error) {
	node, err := r.Node()
	if err != nil {
		return nil, err
	}
	return node.Search(ctx, query)
}
