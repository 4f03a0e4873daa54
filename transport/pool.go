package transport

import (
	"context"
	"sync"
)

// Pool keeps up to size multiplexed transports per address and spreads calls over
// them in order. Transports whose connection died are replaced on the next Get.
type Pool struct {
	size int
	opts []Option

	mu     sync.Mutex
	slots  map[string]*slot
	closed bool
}

type slot struct {
	transports []*ClientTransport
	next       int
}

// NewPool creates an empty pool. Connections are created lazily, the pool grows on demand.
func NewPool(size int, opts ...Option) *Pool {
	return &Pool{
		size:  max(size, 1),
		opts:  opts,
		slots: make(map[string]*slot),
	}
}

// Get returns a transport to addr, dialing a new one while the address has fewer than
// size live transports.
func (p *Pool) Get(ctx context.Context, addr string) (*ClientTransport, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	s := p.slot(addr)
	if len(s.transports) >= p.size {
		t := s.pick()
		p.mu.Unlock()
		return t, nil
	}
	p.mu.Unlock()

	// Dial without holding the lock.
	t, err := Dial(ctx, addr, p.opts...)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		t.Close()
		return nil, ErrClosed
	}
	s = p.slot(addr)
	if len(s.transports) >= p.size {
		// Lost a race with another dial.
		t.Close()
		return s.pick(), nil
	}
	s.transports = append(s.transports, t)
	return t, nil
}

// slot returns the live transports of addr. p.mu must be held.
func (p *Pool) slot(addr string) *slot {
	s, ok := p.slots[addr]
	if !ok {
		s = &slot{}
		p.slots[addr] = s
	}
	live := s.transports[:0]
	for _, t := range s.transports {
		select {
		case <-t.Done():
		default:
			live = append(live, t)
		}
	}
	clear(s.transports[len(live):])
	s.transports = live
	return s
}

func (s *slot) pick() *ClientTransport {
	t := s.transports[s.next%len(s.transports)]
	s.next++
	return t
}

// Len returns the number of live transports to addr.
func (p *Pool) Len(addr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slot(addr).transports)
}

// Close shuts down the pool and closes all connections.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for addr, s := range p.slots {
		for _, t := range s.transports {
			t.Close()
		}
		delete(p.slots, addr)
	}
	return nil
}
