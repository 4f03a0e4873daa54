package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"simple-rpc/loadbalance"
	"simple-rpc/registry"

	"github.com/charmbracelet/log"
)

// Discovery is a Caller that resolves the target of every call through a registry.
//
// Flow: service name → registry (cached, kept fresh by Watch) → balancer.Pick → pooled
// transport → Call.
type Discovery struct {
	registry registry.Registry
	balancer loadbalance.Balancer
	pool     *Pool
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	cache map[string]*watched // service → live instance list
}

type watched struct {
	instances []registry.ServiceInstance
	stop      context.CancelFunc
}

// NewDiscovery creates a Discovery. Close releases the pool and every watch.
func NewDiscovery(reg registry.Registry, bal loadbalance.Balancer, pool *Pool) *Discovery {
	ctx, cancel := context.WithCancel(context.Background())
	return &Discovery{
		registry: reg,
		balancer: bal,
		pool:     pool,
		logger:   log.WithPrefix("discovery"),
		ctx:      ctx,
		cancel:   cancel,
		cache:    make(map[string]*watched),
	}
}

// Call picks an instance of the service named in serviceMethod and calls it.
func (d *Discovery) Call(ctx context.Context, serviceMethod string, payload []byte) ([]byte, error) {
	service := serviceMethod
	if i := strings.LastIndex(serviceMethod, "/"); i >= 0 {
		service = serviceMethod[:i]
	}

	instances, err := d.instances(ctx, service)
	if err != nil {
		return nil, err
	}
	instance, err := d.balancer.Pick(ctx, instances)
	if err != nil {
		return nil, fmt.Errorf("pick %s instance: %w", service, err)
	}

	t, err := d.pool.Get(ctx, instance.Addr)
	if err != nil {
		return nil, err
	}
	return t.Call(ctx, serviceMethod, payload)
}

// instances returns the cached instance list of service, discovering and watching it
// on first use.
func (d *Discovery) instances(ctx context.Context, service string) ([]registry.ServiceInstance, error) {
	d.mu.Lock()
	if w, ok := d.cache[service]; ok {
		d.mu.Unlock()
		return w.instances, nil
	}
	d.mu.Unlock()

	instances, err := d.registry.Discover(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", service, err)
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("discover %s: %w", service, loadbalance.ErrNoInstances)
	}

	watchCtx, stop := context.WithCancel(d.ctx)
	updates, err := d.registry.Watch(watchCtx, service)
	if err != nil {
		// Serve from the one-off lookup without caching.
		stop()
		d.logger.Warn("watch", "service", service, "err", err)
		return instances, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.cache[service]; ok {
		stop()
		return w.instances, nil
	}
	w := &watched{instances: instances, stop: stop}
	d.cache[service] = w
	go d.follow(service, w, updates)
	return instances, nil
}

// follow applies watch updates to the cache. An empty list evicts the service so the
// next call discovers it again.
func (d *Discovery) follow(service string, w *watched, updates <-chan []registry.ServiceInstance) {
	defer w.stop()
	for instances := range updates {
		d.mu.Lock()
		if len(instances) == 0 {
			delete(d.cache, service)
			d.mu.Unlock()
			return
		}
		w.instances = instances
		d.mu.Unlock()
		d.logger.Debug("instances changed", "service", service, "count", len(instances))
	}
	d.mu.Lock()
	if d.cache[service] == w {
		delete(d.cache, service)
	}
	d.mu.Unlock()
}

// Close stops watching and closes every pooled connection.
func (d *Discovery) Close() error {
	d.cancel()
	return d.pool.Close()
}
