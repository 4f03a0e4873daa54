// etcd is a distributed key-value store that provides strong consistency (Raft protocol).
// We use it as a "distributed phonebook" for services:
//
//	Key:   /simple-rpc/{Service}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL-based leases: if the server crashes, the lease expires
// and the entry is automatically removed, so no "ghost" instances remain.

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/simple-rpc/"

func serviceKey(service string) string {
	return keyPrefix + service + "/"
}

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
	logger *log.Logger

	mu     sync.Mutex
	leases map[string]lease // key → lease kept alive by this process
}

type lease struct {
	id     clientv3.LeaseID
	cancel context.CancelFunc // stops KeepAlive
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, dialTimeout time.Duration) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd: %w", err)
	}
	return &EtcdRegistry{
		client: c,
		logger: log.WithPrefix("registry"),
		leases: make(map[string]lease),
	}, nil
}

// Ping reports whether the first endpoint answers within ctx.
func (r *EtcdRegistry) Ping(ctx context.Context) error {
	endpoints := r.client.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("etcd: no endpoints")
	}
	_, err := r.client.Status(ctx, endpoints[0])
	return err
}

// Register adds a service instance to etcd with a TTL lease.
//
// Flow:
//  1. Create a lease with the given TTL (e.g., 10 seconds)
//  2. Put the key-value pair with the lease attached
//  3. Start KeepAlive to automatically renew the lease
func (r *EtcdRegistry) Register(ctx context.Context, instance ServiceInstance, ttl int64) error {
	// Create a TTL-based lease, if KeepAlive stops the entry auto-expires
	granted, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	key := serviceKey(instance.Service) + instance.Addr
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(granted.ID)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	// KeepAlive outlives the registration call, so it gets its own context.
	keepCtx, cancel := context.WithCancel(context.Background())
	ch, err := r.client.KeepAlive(keepCtx, granted.ID)
	if err != nil {
		cancel()
		return fmt.Errorf("keep alive: %w", err)
	}

	r.mu.Lock()
	if old, ok := r.leases[key]; ok {
		old.cancel()
	}
	r.leases[key] = lease{id: granted.ID, cancel: cancel}
	r.mu.Unlock()

	// Consume KeepAlive responses to prevent the channel from filling up
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keepalive stopped", "key", key)
	}()
	return nil
}

// Deregister removes a service instance from etcd and revokes its lease.
// Called during graceful shutdown before closing the listener.
func (r *EtcdRegistry) Deregister(ctx context.Context, service string, addr string) error {
	key := serviceKey(service) + addr

	r.mu.Lock()
	l, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()

	if ok {
		l.cancel()
		if _, err := r.client.Revoke(ctx, l.id); err != nil {
			r.logger.Warn("revoke lease", "key", key, "err", err)
		}
	}

	resp, err := r.client.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if !ok && resp.Deleted == 0 {
		return ErrNotRegistered
	}
	return nil
}

// Watch monitors a service prefix in etcd and emits updated instance lists
// whenever changes occur (new registrations, deregistrations, lease expirations).
//
// Uses etcd's Watch API (server-push), which is more efficient than polling.
func (r *EtcdRegistry) Watch(ctx context.Context, service string) (<-chan []ServiceInstance, error) {
	ch := make(chan []ServiceInstance, 1)
	watchChan := r.client.Watch(ctx, serviceKey(service), clientv3.WithPrefix())

	go func() {
		defer close(ch)
		for wresp := range watchChan {
			if err := wresp.Err(); err != nil {
				r.logger.Warn("watch", "service", service, "err", err)
				continue
			}
			// On any change, re-fetch the full instance list
			// (simpler than parsing individual watch events)
			instances, err := r.Discover(ctx, service)
			if err != nil {
				r.logger.Warn("rediscover", "service", service, "err", err)
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Discover returns all currently registered instances for a service.
// Queries etcd with a key prefix to find all instances under /simple-rpc/{service}/.
func (r *EtcdRegistry) Discover(ctx context.Context, service string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(ctx, serviceKey(service), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", service, err)
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skip malformed instance", "key", string(kv.Key), "err", err)
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Close stops every KeepAlive and closes the etcd client. Leases then expire on their own.
func (r *EtcdRegistry) Close() error {
	r.mu.Lock()
	for key, l := range r.leases {
		l.cancel()
		delete(r.leases, key)
	}
	r.mu.Unlock()
	return r.client.Close()
}
