// Package loadbalance provides load balancing strategies for distributing
// RPC requests across multiple service instances.
//
// Three strategies are implemented:
//   - RoundRobin:      Stateless services, equal-capacity instances
//   - WeightedRandom:  Heterogeneous instances (different CPU/memory)
//   - ConsistentHash:  Stateful services requiring cache affinity (key from WithKey)
package loadbalance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"simple-rpc/registry"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
// The client calls Pick() before each RPC to select a target instance.
type Balancer interface {
	// Pick selects one instance from the available list.
	// Called on every RPC call, must be goroutine-safe.
	Pick(ctx context.Context, instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the balancer called name: "roundrobin", "weighted" or "hash".
func New(name string) (Balancer, error) {
	switch strings.ToLower(name) {
	case "", "roundrobin", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted", "weightedrandom":
		return &WeightedRandomBalancer{}, nil
	case "hash", "consistenthash":
		return NewConsistentHashBalancer(), nil
	}
	return nil, fmt.Errorf("unknown balancer %q", name)
}

type keyCtx struct{}

// WithKey attaches an affinity key to ctx for key-based balancers.
func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, keyCtx{}, key)
}

// KeyFrom returns the affinity key attached by WithKey.
func KeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(keyCtx{}).(string)
	return key, ok
}
