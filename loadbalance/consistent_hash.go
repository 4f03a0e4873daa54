package loadbalance

import (
	"context"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"simple-rpc/registry"
)

// ConsistentHashBalancer maps keys to instances using a hash ring.
// The same key always maps to the same instance (until the ring changes),
// providing cache affinity, useful for stateful services or local caches.
//
// The key comes from the call context (WithKey). Calls without a key hash the empty
// string and so all land on one instance.
//
// Virtual nodes: each real instance is mapped to N virtual nodes on the ring.
// Without virtual nodes, 3 instances might cluster together on the ring,
// causing uneven load distribution. 100 virtual nodes per instance ensures
// statistical uniformity.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	replicas int // Virtual nodes per real instance

	mu      sync.Mutex
	members string            // joined addresses the ring was built from
	ring    []uint32          // Sorted hash values on the ring
	nodes   map[uint32]string // Hash value → instance address
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		replicas: 100,
		nodes:    make(map[uint32]string),
	}
}

// Pick finds the instance responsible for the context's key. The ring is rebuilt when
// the instance list differs from the previous call.
func (b *ConsistentHashBalancer) Pick(ctx context.Context, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	key, _ := KeyFrom(ctx)

	b.mu.Lock()
	b.rebuild(instances)
	addr := b.lookup(key)
	b.mu.Unlock()

	for i := range instances {
		if instances[i].Addr == addr {
			return &instances[i], nil
		}
	}
	return nil, fmt.Errorf("consistent hash: %s not in instance list", addr)
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}

// rebuild places every instance onto the ring with N virtual nodes. b.mu must be held.
func (b *ConsistentHashBalancer) rebuild(instances []registry.ServiceInstance) {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	sort.Strings(addrs)
	members := strings.Join(addrs, ",")
	if members == b.members {
		return
	}

	b.members = members
	b.ring = b.ring[:0]
	clear(b.nodes)
	for _, addr := range addrs {
		// Each virtual node is hashed from "{addr}#{i}" to spread evenly across the ring.
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = addr
		}
	}
	// Keep the ring sorted for binary search in lookup()
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// lookup hashes the key, then binary-searches for the first node >= hash on the ring.
// If the hash is larger than all nodes, it wraps around to the first node (ring property).
func (b *ConsistentHashBalancer) lookup(key string) string {
	hash := crc32.ChecksumIEEE([]byte(key))
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]]
}
