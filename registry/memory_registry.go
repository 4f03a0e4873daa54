package registry

import (
	"context"
	"slices"
	"sync"
)

// MemoryRegistry is an in-process Registry. TTLs are ignored: an instance stays until
// it is deregistered.
type MemoryRegistry struct {
	mu       sync.Mutex
	services map[string]map[string]ServiceInstance // service → addr → instance
	watchers map[string][]chan []ServiceInstance
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		services: make(map[string]map[string]ServiceInstance),
		watchers: make(map[string][]chan []ServiceInstance),
	}
}

func (r *MemoryRegistry) Register(_ context.Context, instance ServiceInstance, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byAddr, ok := r.services[instance.Service]
	if !ok {
		byAddr = make(map[string]ServiceInstance)
		r.services[instance.Service] = byAddr
	}
	byAddr[instance.Addr] = instance
	r.notify(instance.Service)
	return nil
}

func (r *MemoryRegistry) Deregister(_ context.Context, service string, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[service][addr]; !ok {
		return ErrNotRegistered
	}
	delete(r.services[service], addr)
	r.notify(service)
	return nil
}

func (r *MemoryRegistry) Discover(_ context.Context, service string) ([]ServiceInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(service), nil
}

func (r *MemoryRegistry) Watch(ctx context.Context, service string) (<-chan []ServiceInstance, error) {
	ch := make(chan []ServiceInstance, 1)
	r.mu.Lock()
	r.watchers[service] = append(r.watchers[service], ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		r.watchers[service] = slices.DeleteFunc(r.watchers[service], func(c chan []ServiceInstance) bool {
			return c == ch
		})
		close(ch)
	}()
	return ch, nil
}

// list returns the instances of service sorted by address. r.mu must be held.
func (r *MemoryRegistry) list(service string) []ServiceInstance {
	instances := make([]ServiceInstance, 0, len(r.services[service]))
	for _, inst := range r.services[service] {
		instances = append(instances, inst)
	}
	slices.SortFunc(instances, func(a, b ServiceInstance) int {
		switch {
		case a.Addr < b.Addr:
			return -1
		case a.Addr > b.Addr:
			return 1
		}
		return 0
	})
	return instances
}

// notify sends the current list to every watcher, replacing an unread older list.
// r.mu must be held.
func (r *MemoryRegistry) notify(service string) {
	instances := r.list(service)
	for _, ch := range r.watchers[service] {
		select {
		case <-ch:
		default:
		}
		ch <- instances
	}
}
